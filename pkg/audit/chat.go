package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"smartaset/pkg/ai"
	"smartaset/pkg/domain"
)

// ChatSession is a follow-up conversation grounded in one report.
type ChatSession struct {
	gen    ai.Generator
	report domain.AuditResult
	system string
	logger *slog.Logger

	// send serializes exchanges so replies follow their own question.
	// mu guards transcript only and is never held across the model call.
	send       sync.Mutex
	mu         sync.Mutex
	transcript []domain.ChatTurn
}

// NewChatSession binds a conversation to report with an empty transcript.
func NewChatSession(gen ai.Generator, report domain.AuditResult, logger *slog.Logger) *ChatSession {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatSession{
		gen:    gen,
		report: report,
		system: ChatInstruction(report),
		logger: logger,
	}
}

// ReportID identifies the report this session discusses.
func (c *ChatSession) ReportID() string {
	return c.report.ID
}

// Send appends the user turn, asks the model, and appends its reply. Remote
// failures never surface: the fallback reply is appended instead and the user
// turn stays in the transcript.
func (c *ChatSession) Send(ctx context.Context, message string) (domain.ChatTurn, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return domain.ChatTurn{}, ErrEmptyMessage
	}

	c.send.Lock()
	defer c.send.Unlock()

	c.mu.Lock()
	history := append([]domain.ChatTurn(nil), c.transcript...)
	c.transcript = append(c.transcript, domain.ChatTurn{Role: domain.RoleUser, Text: message})
	c.mu.Unlock()

	reply := FallbackReply
	if c.gen != nil {
		text, err := c.gen.Generate(ctx, ai.Request{
			SystemInstruction: c.system,
			History:           history,
			Parts:             []ai.Part{ai.TextPart(message)},
		})
		switch {
		case err != nil:
			c.logger.Warn("chat reply failed", "audit_id", c.report.ID, "err", err)
		case strings.TrimSpace(text) == "":
			c.logger.Warn("chat reply empty", "audit_id", c.report.ID)
		default:
			reply = text
		}
	}
	turn := domain.ChatTurn{Role: domain.RoleModel, Text: reply}
	c.mu.Lock()
	c.transcript = append(c.transcript, turn)
	c.mu.Unlock()
	return turn, nil
}

// Transcript returns a copy of the conversation so far.
func (c *ChatSession) Transcript() []domain.ChatTurn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.ChatTurn{}, c.transcript...)
}

// ChatInstruction renders the grounded system instruction for report.
func ChatInstruction(report domain.AuditResult) string {
	findings := make([]string, 0, len(report.Details))
	for _, d := range report.Details {
		findings = append(findings, fmt.Sprintf("%s: %s - %s", d.Criterion, d.Status, d.Finding))
	}
	typos := "Tidak ada kesalahan bahasa."
	if len(report.TyposFound) > 0 {
		typos = "Kesalahan bahasa: " + strings.Join(report.TyposFound, ", ")
	}

	var b strings.Builder
	b.WriteString("Anda adalah PTP Senior Kemenkes, rekan diskusi akademik profesional.\n\n")
	fmt.Fprintf(&b, "KONTEKS BERKAS YANG DIUNGGAH (%s):\n", report.AssetName)
	fmt.Fprintf(&b, "- Skor: %s/100\n", FormatScore(report.OverallScore))
	b.WriteString("- Temuan Utama:\n")
	b.WriteString(strings.Join(findings, "\n"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "- Audit Bahasa: %s\n\n", typos)
	b.WriteString(`ATURAN DISKUSI:
1. Dasar jawaban UTAMA harus berdasarkan data temuan berkas di atas.
2. Jika pertanyaan di luar isi berkas, jawab secara normatif berdasarkan teori penyusunan aset pembelajaran.
3. Jawab LANGSUNG ke poin tanpa prolog, sapaan pembuka, atau basa-basi bertele-tele.
4. Gunakan bahasa akademik yang santai tapi lugas (to the point).
5. JANGAN berikan usulan/saran/masukan jika tidak diminta secara eksplisit oleh user.
6. DILARANG menggunakan format bold (**), italic (*), atau markdown. Gunakan teks polos saja.
7. Jika bisa dijawab dengan sangat singkat, lakukan.`)
	return b.String()
}

// FormatScore prints a score without trailing zeros (85, 72.5).
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
