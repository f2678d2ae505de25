package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/RamonSaldanha/gravadorjuridico/internal/models"
	"github.com/RamonSaldanha/gravadorjuridico/internal/providers/ai"
	"github.com/RamonSaldanha/gravadorjuridico/internal/utils"
)

// fallbackOffset advances the running offset past a part that returned no
// usable segment timings (chunks are ~5s).
const fallbackOffset = 5.0

// Pipeline runs the post-recording passes: timestamped reconciliation across
// parts, LLM diarization, and dossier/title generation.
type Pipeline struct {
	provider ai.Provider
	log      *logrus.Entry
}

func New(provider ai.Provider, log *logrus.Entry) *Pipeline {
	return &Pipeline{provider: provider, log: log}
}

// Reconcile produces one merged segment list for a recording. Legacy
// multi-part recordings are transcribed part by part with a running time
// offset; single-file recordings get one whole-file pass.
func (p *Pipeline) Reconcile(ctx context.Context, primary string, parts []string) ([]ai.Segment, string, error) {
	if len(parts) == 0 {
		res, err := p.provider.TranscribeTimestamped(ctx, primary)
		if err != nil {
			return nil, "", err
		}
		return res.Segments, res.Text, nil
	}

	var (
		merged     []ai.Segment
		plainTexts []string
		timeOffset float64
	)
	for _, part := range parts {
		res, err := p.provider.TranscribeTimestamped(ctx, part)
		if err != nil {
			return nil, "", err
		}

		var last float64
		for _, seg := range res.Segments {
			merged = append(merged, ai.Segment{
				Start: seg.Start + timeOffset,
				End:   seg.End + timeOffset,
				Text:  seg.Text,
			})
			last = seg.End
		}
		if text := strings.TrimSpace(res.Text); text != "" {
			plainTexts = append(plainTexts, text)
		}

		if last > 0 {
			timeOffset += last
		} else {
			timeOffset += fallbackOffset
		}
	}
	return merged, strings.Join(plainTexts, " "), nil
}

// Diarize sends the merged segment list through the diarization prompt and
// parses the speaker-attributed response. On a parse failure nothing is
// returned, so the caller's previous dialogue state stays untouched.
func (p *Pipeline) Diarize(ctx context.Context, primary string, parts []string) (*models.DiarizedTranscription, error) {
	segments, plainText, err := p.Reconcile(ctx, primary, parts)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString(diarizationPrompt)
	for _, seg := range segments {
		fmt.Fprintf(&sb, "[%s - %s] %q\n", FormatTimestamp(seg.Start), FormatTimestamp(seg.End), seg.Text)
	}

	raw, err := p.provider.GenerateText(ctx, sb.String())
	if err != nil {
		return nil, err
	}

	diarized, err := parseDiarizationResponse(raw)
	if err != nil {
		return nil, err
	}
	p.log.WithField("segments", len(diarized)).Debug("diarization parsed")

	return &models.DiarizedTranscription{
		Diarized:  true,
		Segments:  diarized,
		PlainText: plainText,
	}, nil
}

func (p *Pipeline) GenerateDossier(ctx context.Context, transcription string) (string, error) {
	return p.provider.GenerateText(ctx, dossierPrompt+transcription)
}

func (p *Pipeline) GenerateTitle(ctx context.Context, transcript string) (string, error) {
	title, err := p.provider.GenerateText(ctx, titlePrompt+transcript)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(title), nil
}

// FormatTimestamp renders seconds as MM:SS, truncating to whole seconds.
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func parseDiarizationResponse(raw string) ([]models.DiarizedSegment, error) {
	const op = "Pipeline.Diarize"

	cleaned := stripCodeFences(raw)

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &elems); err != nil {
		// also accept {"segments": [...]}
		var wrapper struct {
			Segments []json.RawMessage `json:"segments"`
		}
		if werr := json.Unmarshal([]byte(cleaned), &wrapper); werr != nil || wrapper.Segments == nil {
			return nil, utils.E(utils.CodeDiarizationParse, op, "response is not a segment list", err)
		}
		elems = wrapper.Segments
	}

	segments := make([]models.DiarizedSegment, 0, len(elems))
	for _, e := range elems {
		var seg models.DiarizedSegment
		if err := json.Unmarshal(e, &seg); err != nil {
			return nil, utils.E(utils.CodeDiarizationParse, op, "invalid segment element", err)
		}
		if seg.Speaker == "" {
			seg.Speaker = "Desconhecido"
		}
		if seg.Start == "" {
			seg.Start = "00:00"
		}
		if seg.End == "" {
			seg.End = "00:00"
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// stripCodeFences removes a surrounding markdown code fence (``` or ```json)
// from an LLM response.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.HasPrefix(s, "[") && !strings.HasPrefix(s, "{") {
		// drop the language tag line ("json")
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
