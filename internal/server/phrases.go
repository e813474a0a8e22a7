package server

import (
	"encoding/base64"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ThetaZillaClub/smSynth-sub002/internal/midifile"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/music"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/phrase"
)

type phraseRequest struct {
	LowHz  float64 `json:"lowHz"`
	HighHz float64 `json:"highHz"`
	A4Hz   float64 `json:"a4Hz,omitempty"`

	BPM     float64 `json:"bpm"`
	TimeNum int     `json:"timeNum"`
	TimeDen int     `json:"timeDen"`

	TonicPC int    `json:"tonicPc"`
	Scale   string `json:"scale"`

	Mode            string `json:"mode,omitempty"`
	SequencePattern string `json:"sequencePattern,omitempty"`
	Intervals       []int  `json:"intervals,omitempty"`

	MaxPerDegree int  `json:"maxPerDegree,omitempty"`
	OctaveWindow int  `json:"octaveWindow,omitempty"`
	IncludeUnder bool `json:"includeUnder,omitempty"`
	IncludeOver  bool `json:"includeOver,omitempty"`

	Bars       int      `json:"bars,omitempty"`
	NoteQuota  int      `json:"noteQuota,omitempty"`
	Values     []string `json:"values,omitempty"`
	RestProb   float64  `json:"restProb,omitempty"`
	AllowRests bool     `json:"allowRests,omitempty"`

	Seed uint64 `json:"seed"`

	// IncludeMidi requests a base64 Standard MIDI File of the phrase.
	IncludeMidi bool `json:"includeMidi,omitempty"`
}

type phraseResponse struct {
	OK     bool          `json:"ok"`
	Phrase *music.Phrase `json:"phrase,omitempty"`
	Midi   string        `json:"midi,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func (s *Server) handleGeneratePhrase(c echo.Context) error {
	var req phraseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, phraseResponse{Error: "malformed body"})
	}

	values := make([]music.NoteValue, 0, len(req.Values))
	for _, v := range req.Values {
		values = append(values, music.NoteValue(v))
	}
	rhythm := phrase.BuildRhythm(phrase.RhythmParams{
		BPM:        req.BPM,
		Num:        req.TimeNum,
		Den:        req.TimeDen,
		Values:     values,
		RestProb:   req.RestProb,
		AllowRests: req.AllowRests,
		Bars:       req.Bars,
		NoteQuota:  req.NoteQuota,
		Seed:       req.Seed,
	})
	if rhythm == nil {
		return c.JSON(http.StatusUnprocessableEntity, phraseResponse{Error: "invalid rhythm request"})
	}

	p := phrase.Generate(phrase.Params{
		LowHz:           req.LowHz,
		HighHz:          req.HighHz,
		A4Hz:            req.A4Hz,
		BPM:             req.BPM,
		TimeNum:         req.TimeNum,
		TimeDen:         req.TimeDen,
		TonicPC:         req.TonicPC,
		Scale:           music.ScaleName(req.Scale),
		Rhythm:          rhythm,
		MaxPerDegree:    req.MaxPerDegree,
		OctaveWindow:    req.OctaveWindow,
		IncludeUnder:    req.IncludeUnder,
		IncludeOver:     req.IncludeOver,
		Mode:            phrase.Mode(req.Mode),
		SequencePattern: phrase.SequencePattern(req.SequencePattern),
		Intervals:       req.Intervals,
		Seed:            req.Seed,
	})
	if p == nil {
		return c.JSON(http.StatusUnprocessableEntity, phraseResponse{Error: "vocal range not ready"})
	}

	resp := phraseResponse{OK: true, Phrase: p}
	if req.IncludeMidi {
		data, err := midifile.Encode(p, req.BPM)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, phraseResponse{Error: "midi encoding failed"})
		}
		resp.Midi = base64.StdEncoding.EncodeToString(data)
	}
	return c.JSON(http.StatusOK, resp)
}
