// envelope.go — MIME message assembly: one text body, image attachments.
package delivery

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// base64 body lines are wrapped at 76 characters.
const lineLength = 76

// BuildMessage renders the complete RFC 5322 message for job.
func BuildMessage(cfg TransportConfig, job Job, now time.Time) ([]byte, error) {
	from, err := headerAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}
	to, err := headerAddress(job.Recipient)
	if err != nil {
		return nil, fmt.Errorf("recipient: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := []struct{ k, v string }{
		{"From", from},
		{"To", to},
		{"Subject", Transliterate(cfg.Subject)},
		{"Date", now.Format(time.RFC1123Z)},
		{"Message-ID", fmt.Sprintf("<%s@%s>", job.ID, messageDomain(cfg))},
		{"MIME-Version", "1.0"},
		{"Content-Type", mime.FormatMediaType("multipart/mixed", map[string]string{"boundary": mw.Boundary()})},
	}
	var head bytes.Buffer
	for _, h := range hdr {
		fmt.Fprintf(&head, "%s: %s\r\n", h.k, h.v)
	}
	head.WriteString("\r\n")

	if err := writeBody(mw, cfg.Body); err != nil {
		return nil, err
	}
	for _, a := range job.Artifacts {
		if err := writeAttachment(mw, a); err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	return append(head.Bytes(), buf.Bytes()...), nil
}

func headerAddress(s string) (string, error) {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return "", err
	}
	addr.Name = Transliterate(addr.Name)
	return addr.String(), nil
}

func messageDomain(cfg TransportConfig) string {
	if addr, err := mail.ParseAddress(cfg.From); err == nil {
		if at := strings.LastIndexByte(addr.Address, '@'); at >= 0 {
			return addr.Address[at+1:]
		}
	}
	if cfg.Host != "" {
		return cfg.Host
	}
	return "localhost"
}

func writeBody(mw *multipart.Writer, body string) error {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", "text/plain; charset=UTF-8")
	h.Set("Content-Transfer-Encoding", "quoted-printable")
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	qp := quotedprintable.NewWriter(part)
	if _, err := io.WriteString(qp, body); err != nil {
		return err
	}
	return qp.Close()
}

func writeAttachment(mw *multipart.Writer, a Artifact) error {
	if a.Image == nil {
		return fmt.Errorf("%w: attachment %q has no image", ErrInvalidJob, a.Name)
	}
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", mime.FormatMediaType("image/png", map[string]string{"name": a.Name}))
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Name}))
	h.Set("Content-Transfer-Encoding", "base64")
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}

	lw := &lineWriter{w: part}
	enc := base64.NewEncoder(base64.StdEncoding, lw)
	if err := imaging.Encode(enc, a.Image, imaging.PNG); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return lw.flush()
}

// lineWriter inserts CRLF every lineLength bytes.
type lineWriter struct {
	w   io.Writer
	col int
}

func (l *lineWriter) Write(p []byte) (int, error) {
	n := 0
	for len(p) > 0 {
		room := lineLength - l.col
		chunk := p
		if len(chunk) > room {
			chunk = chunk[:room]
		}
		if _, err := l.w.Write(chunk); err != nil {
			return n, err
		}
		n += len(chunk)
		l.col += len(chunk)
		p = p[len(chunk):]
		if l.col == lineLength {
			if _, err := io.WriteString(l.w, "\r\n"); err != nil {
				return n, err
			}
			l.col = 0
		}
	}
	return n, nil
}

func (l *lineWriter) flush() error {
	if l.col == 0 {
		return nil
	}
	l.col = 0
	_, err := io.WriteString(l.w, "\r\n")
	return err
}
