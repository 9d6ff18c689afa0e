package main

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/comix-generator/internal/bundle"
	"github.com/fpang/comix-generator/internal/comix"
	"github.com/fpang/comix-generator/internal/page"
	"github.com/fpang/comix-generator/internal/publish"
	"github.com/fpang/comix-generator/internal/terminal"
)

// pageFileName is the HTML page written with --html.
const pageFileName = "index.html"

// writeExtras writes the page and the bundle requested by flags and returns
// every output file.
func writeExtras(s *terminal.Surface, req comix.GenerationRequest, outDir string, now time.Time) ([]string, error) {
	var pagePath string
	if htmlFlag {
		pagePath = filepath.Join(outDir, pageFileName)
		if err := page.WriteFile(pagePath, buildPage(s, req, now)); err != nil {
			return nil, err
		}
		log.Info().Str("path", pagePath).Msg("Page written")
	}

	files := outputFiles(s, pagePath)
	if zipFlag != "" {
		if err := bundle.WriteFile(zipFlag, files, now); err != nil {
			return nil, err
		}
		log.Info().Str("path", zipFlag).Int("files", len(files)).Msg("Bundle written")
		files = append(files, zipFlag)
	}
	return files, nil
}

// publishFiles uploads files and prints one share link per file.
func publishFiles(ctx context.Context, dest publish.Destination, files []string) error {
	pub, err := publish.NewFromConfig(ctx, dest, linkExpiryFlag)
	if err != nil {
		return err
	}
	return printLinks(ctx, pub, files, os.Stdout)
}

func printLinks(ctx context.Context, pub *publish.Publisher, files []string, w io.Writer) error {
	objects, err := pub.Upload(ctx, files)
	if err != nil {
		return err
	}
	for _, obj := range objects {
		link := obj.URL
		if link == "" {
			link = obj.Key
		}
		fmt.Fprintf(w, "  %s\n", link)
	}
	return nil
}

// buildPage links the page to the image files next to it.
func buildPage(s *terminal.Surface, req comix.GenerationRequest, now time.Time) page.Page {
	p := page.New(req, now)
	for i, slot := range s.Images {
		p.Panels[i].Src = relativeSrc(slot)
		p.Panels[i].Generated = slot.Generated()
	}
	p.Final.Src = relativeSrc(s.Final)
	p.Final.Generated = s.Final.Generated()
	return p
}

func relativeSrc(slot *terminal.FileSlot) template.URL {
	if slot.Path() == "" {
		return ""
	}
	return template.URL(filepath.Base(slot.Path()))
}

func outputFiles(s *terminal.Surface, pagePath string) []string {
	var files []string
	for _, slot := range s.Slots() {
		if p := slot.Path(); p != "" {
			files = append(files, p)
		}
		if p := slot.ThumbnailPath(); p != "" {
			files = append(files, p)
		}
	}
	if pagePath != "" {
		files = append(files, pagePath)
	}
	return files
}
