package service

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tieubaoca/pdfchat-be/types"
)

// PageExtractor turns a local PDF file into per-page text.
type PageExtractor interface {
	ExtractPages(ctx context.Context, path string) ([]types.Page, error)
}

// CommandRunner runs an external tool and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

var pagesPattern = regexp.MustCompile(`Pages:\s+(\d+)`)

// PDFService extracts text with poppler-utils. Pages without a text layer
// are rendered to an image and run through tesseract.
type PDFService struct {
	runner       CommandRunner
	ocrLanguages string
	tempDir      string
	log          zerolog.Logger
}

func NewPDFService(ocrLanguages, tempDir string, log zerolog.Logger) *PDFService {
	return NewPDFServiceWithRunner(execRunner{}, ocrLanguages, tempDir, log)
}

func NewPDFServiceWithRunner(runner CommandRunner, ocrLanguages, tempDir string, log zerolog.Logger) *PDFService {
	if ocrLanguages == "" {
		ocrLanguages = "eng"
	}
	return &PDFService{
		runner:       runner,
		ocrLanguages: ocrLanguages,
		tempDir:      tempDir,
		log:          log.With().Str("component", "pdf").Logger(),
	}
}

// ExtractPages returns one entry per page that yielded text. Pages where
// both extraction methods fail are skipped with a warning.
func (s *PDFService) ExtractPages(ctx context.Context, path string) ([]types.Page, error) {
	total, err := s.numPages(ctx, path)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("path", path).Int("pages", total).Msg("extracting pdf")

	pages := make([]types.Page, 0, total)
	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := s.extractText(ctx, path, n)
		if err != nil {
			s.log.Warn().Err(err).Int("page", n).Msg("skipping page")
			continue
		}
		pages = append(pages, types.Page{Number: n, Text: text})
	}
	return pages, nil
}

func (s *PDFService) numPages(ctx context.Context, path string) (int, error) {
	out, err := s.runner.Run(ctx, "pdfinfo", path)
	if err != nil {
		return 0, fmt.Errorf("error running pdfinfo: %w", err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if m := pagesPattern.FindStringSubmatch(scanner.Text()); len(m) == 2 {
			return strconv.Atoi(m[1])
		}
	}
	return 0, fmt.Errorf("unable to determine page count from pdfinfo")
}

func (s *PDFService) extractText(ctx context.Context, path string, page int) (string, error) {
	text, err := s.extractWithPdftotext(ctx, path, page)
	if err == nil && text != "" {
		return text, nil
	}
	if err != nil {
		s.log.Debug().Err(err).Int("page", page).Msg("pdftotext failed, trying ocr")
	}
	text, err = s.extractWithTesseract(ctx, path, page)
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}
	return text, nil
}

func (s *PDFService) extractWithPdftotext(ctx context.Context, path string, page int) (string, error) {
	p := strconv.Itoa(page)
	out, err := s.runner.Run(ctx, "pdftotext", "-f", p, "-l", p, "-enc", "UTF-8", "-nopgbrk", path, "-")
	if err != nil {
		return "", err
	}
	return cleanText(string(out)), nil
}

func (s *PDFService) extractWithTesseract(ctx context.Context, path string, page int) (string, error) {
	dir, err := os.MkdirTemp(s.tempDir, "ocr-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(dir)

	p := strconv.Itoa(page)
	prefix := filepath.Join(dir, "page")
	if _, err := s.runner.Run(ctx, "pdftoppm", "-f", p, "-l", p, "-r", "300", "-png", "-singlefile", path, prefix); err != nil {
		return "", fmt.Errorf("error converting page %d to image: %w", page, err)
	}
	out, err := s.runner.Run(ctx, "tesseract", prefix+".png", "stdout", "-l", s.ocrLanguages, "--oem", "3", "--psm", "3")
	if err != nil {
		return "", fmt.Errorf("failed to run tesseract: %w", err)
	}
	text := cleanText(string(out))
	if text == "" {
		return "", fmt.Errorf("got nothing at page %d", page)
	}
	return text, nil
}

var textReplacer = strings.NewReplacer(
	"\u0000", "",
	"\ufffd", "",
	"\u001b", "",
	"\r", "",
	"\f", "\n",
	"\uf8ff", "",
	"\u2021", "",
	"\u2020", "",
)

var multiSpace = regexp.MustCompile(` {2,}`)

func cleanText(text string) string {
	text = textReplacer.Replace(text)
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
