package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/leonardotrapani/speechcoach/internal/api"
	"github.com/leonardotrapani/speechcoach/internal/chat"
	"github.com/leonardotrapani/speechcoach/internal/jobs"
	"github.com/leonardotrapani/speechcoach/internal/language"
)

// Printer writes styled results to w.
type Printer struct {
	w io.Writer
	s Styles
}

func NewPrinter(w io.Writer, s Styles) *Printer {
	return &Printer{w: w, s: s}
}

func (p *Printer) Styles() Styles {
	return p.s
}

func (p *Printer) println(a ...any) {
	fmt.Fprintln(p.w, a...)
}

func (p *Printer) printf(format string, a ...any) {
	fmt.Fprintf(p.w, format, a...)
}

// ProgressBar renders progress (0-100) as a fixed-width bar.
func ProgressBar(progress, width int) string {
	if width <= 0 {
		width = 20
	}
	progress = max(0, min(progress, 100))
	filled := progress * width / 100
	return fmt.Sprintf("[%s%s] %3d%%", strings.Repeat("#", filled), strings.Repeat(".", width-filled), progress)
}

func (p *Printer) scoreStyle(score float64) string {
	text := fmt.Sprintf("%5.1f", score)
	switch {
	case score >= GoodScore:
		return p.s.Success.Render(text)
	case score >= FairScore:
		return p.s.Warning.Render(text)
	default:
		return p.s.Error.Render(text)
	}
}

func (p *Printer) state(label string, state jobs.State, progress int, id string) {
	line := fmt.Sprintf("%s %s", p.s.Label.Render(label), p.s.Highlight.Render(string(state)))
	if state.IsPolling() {
		line += " " + ProgressBar(progress, 20)
	}
	if id != "" {
		line += " " + p.s.Subtle.Render("job "+id)
	}
	p.println(line)
}

func (p *Printer) failure(msg string) {
	p.println(p.s.Error.Render("Error:") + " " + msg)
}

// TranscriptionJob prints a transcription job snapshot, including the
// transcript once it is known.
func (p *Printer) TranscriptionJob(job jobs.Job[string]) {
	p.state("Transcription", job.State, job.Progress, job.ID)
	switch {
	case job.State == jobs.Failed:
		p.failure(job.Message())
	case job.HasResult:
		p.Transcript(job.Result)
	}
}

func (p *Printer) Transcript(text string) {
	if strings.TrimSpace(text) == "" {
		p.println(p.s.Muted.Render("(no speech detected)"))
		return
	}
	p.println(p.s.Box.Render(text))
}

// PronunciationJob prints a pronunciation job snapshot and its analysis when complete.
func (p *Printer) PronunciationJob(job jobs.Job[api.PronunciationAnalysis]) {
	p.state("Pronunciation", job.State, job.Progress, job.ID)
	switch {
	case job.State == jobs.Failed:
		p.failure(job.Message())
	case job.State == jobs.Completed && job.HasResult:
		p.Analysis(job.Result)
	}
}

// Analysis prints scores, transcripts, and the per-word errors in server order.
func (p *Printer) Analysis(a api.PronunciationAnalysis) {
	p.println(p.s.Header.Render("Scores"))
	p.printf("  %-10s %s\n", "Overall", p.scoreStyle(a.OverallScore))
	p.printf("  %-10s %s\n", "Accuracy", p.scoreStyle(a.AccuracyScore))
	p.printf("  %-10s %s\n", "Fluency", p.scoreStyle(a.FluencyScore))
	p.println()

	if a.Transcript != "" {
		p.printf("%s %s\n", p.s.Label.Render("Heard:"), a.Transcript)
	}
	if a.PhoneticTranscript != "" {
		p.printf("%s %s\n", p.s.Label.Render("Phonetic:"), p.s.Highlight.Render(a.PhoneticTranscript))
	}
	p.println(p.s.Muted.Render(fmt.Sprintf("%d words analyzed, %d errors", a.WordsAnalyzed, max(a.TotalErrors, len(a.PronunciationErrors)))))

	if len(a.PronunciationErrors) == 0 {
		p.println(p.s.Success.Render("No pronunciation errors found."))
		return
	}
	p.println()
	p.println(p.s.Header.Render("Words to practice"))
	for i, e := range a.PronunciationErrors {
		p.PronunciationError(i+1, e)
	}
}

func (p *Printer) PronunciationError(n int, e api.PronunciationError) {
	p.printf("%2d. %s %s\n", n,
		p.s.Label.Render(e.Word),
		p.s.Muted.Render(fmt.Sprintf("(%s, %.0f%% confidence)", e.ErrorType, e.Confidence*100)))
	if e.ExpectedPronunciation != "" || e.ActualPronunciation != "" {
		p.printf("    expected %s  heard %s\n",
			p.s.Success.Render(orDash(e.ExpectedPronunciation)),
			p.s.Warning.Render(orDash(e.ActualPronunciation)))
	}
	if e.Suggestion != "" {
		p.printf("    %s\n", p.s.Subtle.Render(e.Suggestion))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// ChatMessage prints one chat turn with its sources.
func (p *Printer) ChatMessage(m chat.Message) {
	if m.Role == chat.RoleUser {
		p.println(p.s.Highlight.Render("you: ") + m.Text)
		return
	}
	label := "tutor: "
	if m.Fallback {
		label = "tutor (offline): "
	}
	p.println(p.s.Header.Render(label) + m.Text)
	if len(m.Sources) > 0 {
		p.println(p.s.Muted.Render("sources:"))
		for _, src := range m.Sources {
			p.println(p.s.Subtle.Render("  - " + src))
		}
	}
}

// Health prints the backend status and each model's readiness, sorted by name.
func (p *Printer) Health(h api.HealthResponse) {
	status := p.s.Error.Render(h.Status)
	switch h.Status {
	case "healthy":
		status = p.s.Success.Render(h.Status)
	case "partial":
		status = p.s.Warning.Render(h.Status)
	}
	p.printf("%s %s\n", p.s.Label.Render("Backend:"), status)
	if h.Message != "" {
		p.println(p.s.Muted.Render(h.Message))
	}
	names := make([]string, 0, len(h.Models))
	for name := range h.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		mark := p.s.Error.Render("not loaded")
		if h.Models[name] {
			mark = p.s.Success.Render("ready")
		}
		p.printf("  %-24s %s\n", name, mark)
	}
}

// Languages prints the supported languages, marking current.
func (p *Printer) Languages(list []language.Language, current string) {
	for _, l := range list {
		line := fmt.Sprintf("  %s  %-12s %s", l.Code, l.Name, p.s.Muted.Render(l.NativeName))
		if l.Code == current {
			line = p.s.Highlight.Render("*") + line[1:]
		}
		p.println(line)
	}
}

func (p *Printer) Error(err error) {
	p.failure(UserMessage(err))
}

func (p *Printer) Info(msg string) {
	p.println(p.s.Muted.Render(msg))
}

func (p *Printer) Success(msg string) {
	p.println(p.s.Success.Render(msg))
}

func (p *Printer) Warning(msg string) {
	p.println(p.s.Warning.Render(msg))
}
