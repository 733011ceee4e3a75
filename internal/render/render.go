// Package render turns an accepted note batch into the Markdown artifact.
package render

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/VamLeovr/rednote-mind-skills/internal/corpus"
)

const (
	DefaultSummaryRunes  = 500
	DefaultImagesPerNote = 2
	untitled             = "无标题"
	unknownAuthor        = "未知作者"
)

// Options controls the document layout. ImageRoot is the directory that
// ImageAsset.LocalPath is relative to; OutputDir is where the Markdown file
// will live. Image links are rewritten relative to OutputDir when both are set.
type Options struct {
	SummaryRunes  int
	ImagesPerNote int
	ImageRoot     string
	OutputDir     string
}

// DefaultOptions returns the stock layout.
func DefaultOptions() Options {
	return Options{SummaryRunes: DefaultSummaryRunes, ImagesPerNote: DefaultImagesPerNote}
}

// Markdown renders notes under topic, most liked first.
func Markdown(topic string, notes []corpus.Note, opts Options) string {
	if opts.SummaryRunes <= 0 {
		opts.SummaryRunes = DefaultSummaryRunes
	}
	if opts.ImagesPerNote < 0 {
		opts.ImagesPerNote = 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", topic)
	fmt.Fprintf(&b, "> 本文整理自 %d 篇小红书笔记\n\n", len(notes))
	b.WriteString("---\n\n")

	for i, n := range corpus.SortByLikes(notes) {
		title := strings.TrimSpace(n.Title)
		if title == "" {
			title = untitled
		}
		author := n.Author.Name
		if author == "" {
			author = unknownAuthor
		}

		fmt.Fprintf(&b, "## %d. %s\n", i+1, title)
		fmt.Fprintf(&b, "> 来源: [小红书](%s) | 热度: ❤️%d ⭐%d 💬%d | 作者: %s\n\n",
			n.URL, n.Likes, n.Collects, n.Comments, author)

		if len(n.Tags) > 0 {
			fmt.Fprintf(&b, "**标签**: %s\n\n", strings.Join(n.Tags, " "))
		}

		if text := strings.TrimSpace(n.Content); text != "" {
			summary := Truncate(text, opts.SummaryRunes)
			fmt.Fprintf(&b, "> %s\n\n", strings.ReplaceAll(summary, "\n", "\n> "))
		}

		for _, l := range imageLinks(n.Images, opts) {
			fmt.Fprintf(&b, "![图片](%s)\n\n", l)
		}
		b.WriteString("---\n\n")
	}
	return b.String()
}

// Truncate cuts s to at most n runes and marks the cut with "...".
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

func imageLinks(images []corpus.ImageAsset, opts Options) []string {
	var out []string
	for _, img := range images {
		if len(out) >= opts.ImagesPerNote {
			break
		}
		p := imagePath(img, opts)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// imagePath prefers the persisted copy and falls back to the source URL.
func imagePath(img corpus.ImageAsset, opts Options) string {
	if img.LocalPath == "" {
		return img.Source
	}
	local := filepath.FromSlash(img.LocalPath)
	if !filepath.IsAbs(local) && opts.ImageRoot != "" {
		local = filepath.Join(opts.ImageRoot, local)
	}
	if opts.OutputDir == "" {
		return filepath.ToSlash(local)
	}
	absOut, err1 := filepath.Abs(opts.OutputDir)
	absImg, err2 := filepath.Abs(local)
	if err1 != nil || err2 != nil {
		return filepath.ToSlash(local)
	}
	rel, err := filepath.Rel(absOut, absImg)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(absImg)
	}
	return filepath.ToSlash(rel)
}
