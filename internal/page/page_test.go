package page

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fpang/comix-generator/internal/comix"
)

func TestRender(t *testing.T) {
	req := comix.GenerationRequest{
		Title:    "My Day <3",
		Captions: []string{"I woke up", "I ate breakfast", "I went to work"},
	}
	p := New(req, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	p.Panels[0] = Image{Src: "image1.jpg", Generated: true, Caption: p.Panels[0].Caption}
	p.Panels[1] = Image{Src: "data:image/jpeg;base64,QUJD", Generated: true, Caption: p.Panels[1].Caption}
	p.Final = Image{Src: "final-image.png", Generated: true}

	var sb strings.Builder
	if err := Render(&sb, p); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := sb.String()

	wants := []string{
		`<title>My Day &lt;3</title>`,
		`<img id="image1" src="image1.jpg" class="generated" alt="Panel 1">`,
		`<img id="image2" src="data:image/jpeg;base64,QUJD" class="generated" alt="Panel 2">`,
		`<img id="image3" alt="Panel 3">`,
		`<img id="final-image" src="final-image.png" class="generated" alt="Final comic">`,
		`<figcaption>I went to work</figcaption>`,
		`Generated 2024-05-01T12:00:00Z`,
	}
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("rendered page missing %q\n%s", want, out)
		}
	}
}

func TestRenderUntitled(t *testing.T) {
	var sb strings.Builder
	if err := Render(&sb, New(comix.GenerationRequest{Captions: []string{"a", "b", "c"}}, time.Time{})); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(sb.String(), "<title>Comix Generator</title>") {
		t.Errorf("untitled page should use the default title:\n%s", sb.String())
	}
	if strings.Contains(sb.String(), "Generated ") {
		t.Error("zero time should omit the generated line")
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "index.html")
	if err := WriteFile(path, New(comix.GenerationRequest{Captions: []string{"a", "b", "c"}}, time.Time{})); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "<!DOCTYPE html>") {
		t.Errorf("unexpected page content: %s", data)
	}
}
