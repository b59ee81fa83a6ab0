package gmail

import (
	"encoding/base64"
	"testing"

	"google.golang.org/api/gmail/v1"
)

func encode(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func textPart(mime, content string) *gmail.MessagePart {
	return &gmail.MessagePart{
		MimeType: mime,
		Body:     &gmail.MessagePartBody{Data: encode(content)},
	}
}

func TestExtractBody(t *testing.T) {
	tests := []struct {
		name         string
		payload      *gmail.MessagePart
		wantPlain    string
		wantHTML     string
		wantCombined string
	}{
		{
			name: "html only",
			payload: &gmail.MessagePart{
				MimeType: "multipart/alternative",
				Parts:    []*gmail.MessagePart{textPart("text/html", "<p>hola</p>")},
			},
			wantPlain:    "",
			wantHTML:     "<p>hola</p>",
			wantCombined: "<p>hola</p>",
		},
		{
			name: "plain and html",
			payload: &gmail.MessagePart{
				MimeType: "multipart/alternative",
				Parts: []*gmail.MessagePart{
					textPart("text/plain", "code 1234"),
					textPart("text/html", "<b>code</b>"),
				},
			},
			wantPlain:    "code 1234",
			wantHTML:     "<b>code</b>",
			wantCombined: "code 1234\n<b>code</b>",
		},
		{
			name: "nested multipart with two plain parts",
			payload: &gmail.MessagePart{
				MimeType: "multipart/mixed",
				Parts: []*gmail.MessagePart{
					{
						MimeType: "multipart/alternative",
						Parts: []*gmail.MessagePart{
							textPart("text/plain", "first"),
							textPart("text/html", "<i>first</i>"),
						},
					},
					textPart("text/plain", "signature"),
				},
			},
			wantPlain:    "first\nsignature",
			wantHTML:     "<i>first</i>",
			wantCombined: "first\nsignature\n<i>first</i>",
		},
		{
			name:         "flat body without parts",
			payload:      textPart("text/plain", "flat"),
			wantPlain:    "flat",
			wantHTML:     "",
			wantCombined: "flat",
		},
		{
			name:         "declared type with charset",
			payload:      textPart("text/HTML; charset=UTF-8", "<p>x</p>"),
			wantPlain:    "",
			wantHTML:     "<p>x</p>",
			wantCombined: "<p>x</p>",
		},
		{
			name: "undecodable part is skipped",
			payload: &gmail.MessagePart{
				MimeType: "multipart/alternative",
				Parts: []*gmail.MessagePart{
					{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: "%%%not-base64%%%"}},
					textPart("text/html", "<p>ok</p>"),
				},
			},
			wantPlain:    "",
			wantHTML:     "<p>ok</p>",
			wantCombined: "<p>ok</p>",
		},
		{
			name: "text attachment ignored",
			payload: &gmail.MessagePart{
				MimeType: "multipart/mixed",
				Parts: []*gmail.MessagePart{
					textPart("text/plain", "body"),
					{
						MimeType: "text/plain",
						Filename: "notes.txt",
						Body:     &gmail.MessagePartBody{Data: encode("attachment")},
					},
				},
			},
			wantPlain:    "body",
			wantCombined: "body",
		},
		{
			name:    "nil payload",
			payload: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := ExtractBody(tt.payload)

			if body.Plain != tt.wantPlain {
				t.Errorf("Plain = %q, want %q", body.Plain, tt.wantPlain)
			}
			if body.HTML != tt.wantHTML {
				t.Errorf("HTML = %q, want %q", body.HTML, tt.wantHTML)
			}
			if body.Combined != tt.wantCombined {
				t.Errorf("Combined = %q, want %q", body.Combined, tt.wantCombined)
			}
		})
	}
}

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    string
		wantErr bool
	}{
		{"padded url-safe", base64.URLEncoding.EncodeToString([]byte("¿hola?")), "¿hola?", false},
		{"unpadded url-safe", base64.RawURLEncoding.EncodeToString([]byte("a>b?")), "a>b?", false},
		{"standard alphabet", base64.StdEncoding.EncodeToString([]byte("a>b?")), "a>b?", false},
		{"garbage", "!!!", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeBody(tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeBody() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("decodeBody() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConvertMessage(t *testing.T) {
	msg := &gmail.Message{
		Id:           "m1",
		ThreadId:     "t1",
		InternalDate: 1700000000000,
		Snippet:      "Tu código",
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "Netflix <info@account.netflix.com>"},
				{Name: "To", Value: "owner+tv@gmail.com"},
				{Name: "Delivered-To", Value: "owner@gmail.com"},
				{Name: "Delivered-To", Value: "relay@example.com"},
				{Name: "Date", Value: "Mon, 2 Jan 2006 15:04:05 -0700"},
				{Name: "subject", Value: "Tu código de acceso temporal"},
			},
			Parts: []*gmail.MessagePart{textPart("text/html", "<p>hi</p>")},
		},
	}

	meta := convertMessage(msg, false)
	if meta.ID != "m1" || meta.ThreadID != "t1" || meta.InternalDate != 1700000000000 {
		t.Errorf("unexpected summary: %+v", meta.MessageSummary)
	}
	if meta.Headers.Subject != "Tu código de acceso temporal" {
		t.Errorf("Subject = %q", meta.Headers.Subject)
	}
	if meta.Headers.DeliveredTo != "owner@gmail.com" {
		t.Errorf("DeliveredTo = %q, want first header", meta.Headers.DeliveredTo)
	}
	if !meta.Body.IsEmpty() {
		t.Errorf("metadata conversion should not decode the body")
	}

	full := convertMessage(msg, true)
	if full.Body.HTML != "<p>hi</p>" {
		t.Errorf("HTML = %q", full.Body.HTML)
	}
}
