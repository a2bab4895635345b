package domain

import "time"

type CallStatus string

const (
	CallRinging    CallStatus = "ringing"
	CallRecorded   CallStatus = "recorded"
	CallProcessing CallStatus = "processing"
	CallProcessed  CallStatus = "processed"
	CallFailed     CallStatus = "failed"
)

type CallSource string

const (
	SourceCall   CallSource = "call"
	SourceUpload CallSource = "upload"
)

// Call is a single phone call or uploaded recording and everything learned about it.
type Call struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`

	CallSid *string    `json:"call_sid,omitempty" gorm:"uniqueIndex;size:64"`
	Source  CallSource `json:"source" gorm:"size:16"`
	From    string     `json:"from"`
	To      string     `json:"to"`
	Status  CallStatus `json:"status" gorm:"size:16;index"`

	RecordingSid      string `json:"recording_sid,omitempty"`
	RecordingURL      string `json:"recording_url,omitempty"`
	RecordingDuration int    `json:"recording_duration,omitempty"`
	AudioURI          string `json:"audio_uri,omitempty"`
	Filename          string `json:"filename,omitempty"`

	Transcript string    `json:"transcript"`
	Confidence float64   `json:"confidence"`
	Phrases    []*Phrase `json:"phrases,omitempty" gorm:"serializer:json"`

	ScamResult *ScamResult `json:"scam_result,omitempty" gorm:"embedded;embeddedPrefix:scam_"`
	Labeled    bool        `json:"labeled"`
	Error      string      `json:"error,omitempty"`
}

// IsSpam reports whether the call currently counts as spam.
func (c *Call) IsSpam() bool {
	return c.ScamResult != nil && c.ScamResult.IsScam
}

// Clone returns a deep copy that shares no memory with c.
func (c *Call) Clone() *Call {
	if c == nil {
		return nil
	}
	out := *c
	if c.CallSid != nil {
		sid := *c.CallSid
		out.CallSid = &sid
	}
	if c.Phrases != nil {
		out.Phrases = make([]*Phrase, len(c.Phrases))
		for i, p := range c.Phrases {
			out.Phrases[i] = p.Clone()
		}
	}
	if c.ScamResult != nil {
		r := *c.ScamResult
		r.Matches = append([]string(nil), c.ScamResult.Matches...)
		r.Categories = append([]string(nil), c.ScamResult.Categories...)
		out.ScamResult = &r
	}
	return &out
}

// ScamResult is the outcome of running the detector over a transcript.
type ScamResult struct {
	IsScam     bool     `json:"is_scam"`
	Score      float64  `json:"score"`
	Matches    []string `json:"matches" gorm:"serializer:json"`
	Categories []string `json:"categories" gorm:"serializer:json"`
	Reason     string   `json:"reason"`
}
