package logger

import (
	"io"
	"regexp"
)

// Redactor redacts credentials from log output.
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor creates a redactor covering the key formats of the supported
// providers plus generic bearer tokens.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*regexp.Regexp{
			// OpenRouter / OpenAI-style keys
			regexp.MustCompile(`sk-[a-zA-Z0-9_-]{16,}`),

			// Google AI Studio keys
			regexp.MustCompile(`AIza[a-zA-Z0-9_-]{20,}`),

			// Bearer tokens
			regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]+`),

			// api_key fields echoed in payloads or settings output
			regexp.MustCompile(`api_key["\s:=]+[^\s"]+`),
		},
	}
}

// Redact replaces every credential match in s with [REDACTED].
func (r *Redactor) Redact(s string) string {
	result := s
	for _, pattern := range r.patterns {
		result = pattern.ReplaceAllString(result, "[REDACTED]")
	}
	return result
}

// Wrap returns a writer that redacts everything written through it.
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{writer: w, redactor: r}
}

type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

func (w *redactingWriter) Write(p []byte) (n int, err error) {
	redacted := w.redactor.Redact(string(p))
	if _, err := w.writer.Write([]byte(redacted)); err != nil {
		return 0, err
	}
	// Report the original length so zerolog does not treat the shorter
	// redacted output as a partial write.
	return len(p), nil
}
