package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/fpang/comix-generator/internal/comix"
	"github.com/fpang/comix-generator/internal/controller"
	"github.com/fpang/comix-generator/internal/imaging"
	"github.com/fpang/comix-generator/internal/metrics"
	"github.com/fpang/comix-generator/internal/terminal"
)

// GenerateInput is the argument of the generate_comic tool.
type GenerateInput struct {
	Title    string   `json:"title,omitempty" jsonschema:"optional title of the comic strip"`
	Captions []string `json:"captions" jsonschema:"exactly three panel captions, in order"`
}

// PanelInfo describes one returned image.
type PanelInfo struct {
	Slot        string `json:"slot"`
	ContentType string `json:"content_type"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
}

// GenerateOutput is the structured result of the generate_comic tool.
type GenerateOutput struct {
	Outcome string      `json:"outcome"`
	Images  []PanelInfo `json:"images"`
}

// generator binds the tool to a generation client.
type generator struct {
	gen     controller.Generator
	timeout time.Duration
	token   string

	// status receives the spinner; stdout is the protocol stream.
	status io.Writer
	emf    io.Writer
	label  string
}

// recordingGenerator remembers the raw result so prompts can be reported.
type recordingGenerator struct {
	controller.Generator
	result *comix.GenerationResult
}

func (r *recordingGenerator) Generate(ctx context.Context, req comix.GenerationRequest) (*comix.GenerationResult, error) {
	res, err := r.Generator.Generate(ctx, req)
	if err == nil {
		r.result = res
	}
	return res, err
}

func (g *generator) handle(ctx context.Context, _ *mcp.CallToolRequest, in GenerateInput) (*mcp.CallToolResult, GenerateOutput, error) {
	if len(in.Captions) != comix.CaptionCount {
		return nil, GenerateOutput{}, fmt.Errorf("expected %d captions, got %d", comix.CaptionCount, len(in.Captions))
	}
	var captions [comix.CaptionCount]string
	copy(captions[:], in.Captions)

	sess := newSession(terminal.NewStatusLine(g.status, g.label), terminal.NewMessageLine(g.status))
	rec := &recordingGenerator{Generator: g.gen}

	opts := []controller.Option{
		controller.WithTimeout(g.timeout),
		controller.WithToken(g.token),
	}
	if g.emf != nil {
		opts = append(opts, controller.WithObserver(func(o controller.Outcome, elapsed time.Duration) {
			metrics.RecordGeneration(g.emf, "mcp", o.String(), elapsed)
		}))
	}
	ctrl, err := controller.New(sess.handles(in.Title, captions), rec, opts...)
	if err != nil {
		return nil, GenerateOutput{}, err
	}

	outcome, err := ctrl.Submit(ctx)
	switch outcome {
	case controller.OutcomeInvalid, controller.OutcomeTimeout:
		return nil, GenerateOutput{}, errors.New(sess.notices.last())
	case controller.OutcomeError:
		if msg := sess.message.Text(); msg != "" {
			return nil, GenerateOutput{}, errors.New(msg)
		}
		return nil, GenerateOutput{}, err
	case controller.OutcomeSuccess:
	default:
		return nil, GenerateOutput{}, err
	}

	result, out := buildResult(sess, rec.result)
	out.Outcome = outcome.String()
	return result, out, nil
}

// buildResult returns the filled slots as image content plus their metadata.
func buildResult(sess *session, raw *comix.GenerationResult) (*mcp.CallToolResult, GenerateOutput) {
	result := &mcp.CallToolResult{}
	out := GenerateOutput{Images: []PanelInfo{}}

	add := func(name string, slot *memorySlot, prompt string) {
		asset, ok := slot.get()
		if !ok {
			return
		}
		data, err := asset.Decode()
		if err != nil {
			log.Warn().Err(err).Str("slot", name).Msg("Skipping undecodable image")
			return
		}
		info := PanelInfo{Slot: name, ContentType: asset.ContentType, Prompt: prompt}
		if meta, err := imaging.Inspect(data); err == nil {
			info.Width, info.Height = meta.Width, meta.Height
		}
		out.Images = append(out.Images, info)
		result.Content = append(result.Content, &mcp.ImageContent{Data: data, MIMEType: asset.ContentType})
	}

	for i, slot := range sess.panels {
		prompt := ""
		if raw != nil && i < len(raw.Images) {
			prompt = raw.Images[i].PromptText()
		}
		add(fmt.Sprintf("image%d", i+1), slot, prompt)
	}
	finalPrompt := ""
	if raw != nil {
		finalPrompt = raw.FinalImage.PromptText()
	}
	add("final-image", sess.final, finalPrompt)

	result.Content = append(result.Content, &mcp.TextContent{
		Text: fmt.Sprintf("Generated %d image(s).", len(out.Images)),
	})
	return result, out
}
