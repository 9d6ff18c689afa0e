package cli

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fpang/comix-generator/internal/comix"
	"github.com/fpang/comix-generator/internal/comixapi"
	"github.com/fpang/comix-generator/internal/controller"
	"github.com/fpang/comix-generator/internal/terminal"
)

func TestFormatDurationShort(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{42 * time.Second, "0:42"},
		{2*time.Minute + 5*time.Second, "2:05"},
		{time.Hour + time.Minute + time.Second, "1:01:01"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDurationShort(tt.d), tt.d.String())
	}
}

func TestPrompter_Ask(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("  My Day \nlast"), &out)

	assert.Equal(t, "My Day", p.Ask("Title"))
	assert.Equal(t, "last", p.Ask("Caption 1"))
	assert.Equal(t, "", p.Ask("Caption 2"))
	assert.Equal(t, "Title: Caption 1: Caption 2: ", out.String())
}

func TestFillInputs(t *testing.T) {
	var asked []string
	ask := func(label string) string {
		asked = append(asked, label)
		return "answer " + label
	}

	title, captions := FillInputs(ask, "", [comix.CaptionCount]string{"one", " ", ""}, false)

	assert.Equal(t, []string{"Title (optional)", "Caption 2", "Caption 3"}, asked)
	assert.Equal(t, "answer Title (optional)", title)
	assert.Equal(t, "one", captions[0])
	assert.Equal(t, "answer Caption 3", captions[2])
}

func TestFillInputs_TitleFlagSet(t *testing.T) {
	ask := func(label string) string {
		t.Errorf("unexpected prompt %q", label)
		return ""
	}
	title, _ := FillInputs(ask, "", [comix.CaptionCount]string{"a", "b", "c"}, true)
	assert.Empty(t, title)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name    string
		outcome controller.Outcome
		err     error
		want    int
	}{
		{"success", controller.OutcomeSuccess, nil, ExitOK},
		{"invalid", controller.OutcomeInvalid, &comix.ValidationError{Missing: []int{2}}, ExitInvalid},
		{"timeout", controller.OutcomeTimeout, fmt.Errorf("%w after 2m0s", controller.ErrTimeout), ExitTimeout},
		{"api error", controller.OutcomeError, &comixapi.APIError{StatusCode: 500, Kind: comixapi.KindServer, Message: "boom"}, ExitError},
		{"busy", controller.OutcomeNone, controller.ErrBusy, ExitError},
		{"wrapped timeout without outcome", controller.OutcomeNone, fmt.Errorf("x: %w", controller.ErrTimeout), ExitTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.outcome, tt.err))
			assert.Equal(t, tt.want, HandleGenerateError(tt.outcome, tt.err))
		})
	}
}

func TestHandleGenerateError_APIKinds(t *testing.T) {
	for _, kind := range []comixapi.ErrorKind{comixapi.KindUnauthorized, comixapi.KindQuotaExceeded, comixapi.KindBadRequest, comixapi.KindOther} {
		err := &comixapi.APIError{StatusCode: 401, Kind: kind, Message: "Invalid token"}
		assert.Equal(t, ExitError, HandleGenerateError(controller.OutcomeError, err), kind.String())
	}
	assert.Equal(t, ExitError, HandleGenerateError(controller.OutcomeError, errors.New("dial tcp: refused")))
}

func TestPrintSummary(t *testing.T) {
	s := terminal.NewSurface(&bytes.Buffer{}, terminal.Options{OutputDir: t.TempDir()})
	var out bytes.Buffer
	PrintSummary(&out, s.Slots(), 75*time.Second)
	assert.Equal(t, "Wrote 0 image(s) in 1:15\n", out.String())
}
