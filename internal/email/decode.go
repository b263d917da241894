package email

import (
	"bytes"
	"io"
	"strings"

	"github.com/emersion/go-message"
	"github.com/jhillyerd/enmime"

	"github.com/brandon/mail-assistant/pkg/types"
)

// maxPartDepth bounds recursion into nested multiparts.
const maxPartDepth = 16

// RawMessage is a fetched message before decoding.
type RawMessage struct {
	ID      string
	Content []byte
}

// Decode turns raw message bytes into an EmailRecord. It never fails: malformed
// input degrades to an empty or raw-text body instead of an error.
func Decode(raw RawMessage) types.EmailRecord {
	// A nil entity means the header block itself is unreadable; a non-nil entity
	// with an error only reports an unknown charset or transfer encoding.
	entity, _ := message.Read(bytes.NewReader(raw.Content))
	if entity == nil {
		return decodeLenient(raw)
	}

	var parts textParts
	parts.walk(entity, 0)

	return types.EmailRecord{
		ID:      raw.ID,
		From:    decodeHeader(entity.Header.Get("From")),
		Subject: decodeHeader(entity.Header.Get("Subject")),
		Body:    parts.body(),
	}
}

// textParts collects the first text/plain and first text/html leaf.
type textParts struct {
	plain, html       string
	hasPlain, hasHTML bool
}

func (p *textParts) body() string {
	if body := strings.TrimSpace(p.plain); body != "" {
		return body
	}
	return strings.TrimSpace(p.html)
}

func (p *textParts) walk(entity *message.Entity, depth int) {
	if entity.MultipartReader() != nil {
		if depth >= maxPartDepth {
			return
		}
		p.walkMultipart(entity, depth)
		return
	}

	mediaType, params, err := entity.Header.ContentType()
	if err != nil || mediaType == "" {
		mediaType = "text/plain"
	}

	if depth == 0 {
		// Sole payload of a non-multipart message.
		text := readText(entity, params["charset"])
		if mediaType == "text/html" {
			p.html, p.hasHTML = text, true
		} else {
			p.plain, p.hasPlain = text, true
		}
		return
	}

	if isAttachment(entity) {
		return
	}

	switch {
	case mediaType == "text/plain" && !p.hasPlain:
		p.plain, p.hasPlain = readText(entity, params["charset"]), true
	case mediaType == "text/html" && !p.hasHTML:
		p.html, p.hasHTML = readText(entity, params["charset"]), true
	}
}

// walkMultipart visits every part. A top-level multipart that yields no parts at all,
// usually a missing or mismatched boundary, keeps its raw body as plain text.
func (p *textParts) walkMultipart(entity *message.Entity, depth int) {
	var raw bytes.Buffer
	if depth == 0 {
		entity.Body = io.TeeReader(entity.Body, &raw)
	}

	mr := entity.MultipartReader()
	parts := 0
	for {
		// Unknown charset or transfer encoding still yields a usable part.
		part, _ := mr.NextPart()
		if part == nil {
			break
		}
		parts++
		p.walk(part, depth+1)
	}
	if depth > 0 || parts > 0 {
		return
	}

	io.Copy(io.Discard, entity.Body) //nolint:errcheck
	p.plain, p.hasPlain = decodeText(raw.Bytes(), ""), true
}

// readText reads a transfer-decoded body and runs it through the charset chain.
// A read error keeps whatever was read before it.
func readText(entity *message.Entity, charset string) string {
	b, _ := io.ReadAll(entity.Body)
	return decodeText(b, charset)
}

func isAttachment(entity *message.Entity) bool {
	disposition, _, err := entity.Header.ContentDisposition()
	if err == nil {
		return disposition == "attachment"
	}
	return strings.Contains(strings.ToLower(entity.Header.Get("Content-Disposition")), "attachment")
}

// decodeLenient handles messages whose header block go-message rejects. enmime repairs
// common header damage; if it also gives up, the raw bytes become the body.
func decodeLenient(raw RawMessage) types.EmailRecord {
	record := types.EmailRecord{ID: raw.ID}

	// Without text conversion env.Text stays empty for HTML-only mail, so the
	// plain-then-html choice matches the strict path.
	parser := enmime.NewParser(enmime.DisableTextConversion(true))
	env, err := parser.ReadEnvelope(bytes.NewReader(raw.Content))
	if err == nil {
		record.From = strings.ToValidUTF8(env.GetHeader("From"), "")
		record.Subject = strings.ToValidUTF8(env.GetHeader("Subject"), "")
		record.Body = strings.TrimSpace(env.Text)
		if record.Body == "" {
			record.Body = strings.TrimSpace(env.HTML)
		}
		return record
	}

	record.Body = strings.TrimSpace(decodeText(raw.Content, ""))
	return record
}
