package exam

import (
	"errors"
	"fmt"
	"time"
)

// Type identifies one of the supported exam tracks.
type Type string

const (
	TypeProfessional    Type = "professional"
	TypeSubProfessional Type = "subprofessional"
	TypePractice        Type = "practice"
)

// ParseType validates a raw exam type string.
func ParseType(raw string) (Type, error) {
	switch Type(raw) {
	case TypeProfessional, TypeSubProfessional, TypePractice:
		return Type(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownExamType, raw)
}

// Difficulty constants for the optional question difficulty tag.
const (
	DifficultyEasy     = "easy"
	DifficultyModerate = "moderate"
	DifficultyHard     = "hard"
)

// Language constants for the optional question language tag.
const (
	LanguageEnglish  = "english"
	LanguageFilipino = "filipino"
)

var (
	// ErrNoQuestionsAvailable is the only fatal generation failure: the
	// sampler came up entirely empty and no exam can be started.
	ErrNoQuestionsAvailable = errors.New("no questions available")

	ErrUnknownExamType = errors.New("unknown exam type")

	// ErrNoActiveSession is returned by session operations when no exam of
	// the requested type is currently running.
	ErrNoActiveSession = errors.New("no active session")

	// ErrIndexOutOfRange is returned on navigation outside [0, len(questions)).
	ErrIndexOutOfRange = errors.New("question index out of range")

	// ErrUnknownQuestion is returned when an answer targets a question id
	// that is not part of the current session.
	ErrUnknownQuestion = errors.New("question not in session")
)

// AnswerOption is a single selectable choice on a question.
type AnswerOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is the normalized bank entry. Immutable once loaded; sessions
// reference loaded questions, they never copy or mutate them.
type Question struct {
	ID            string         `json:"id"`
	Category      string         `json:"category"`
	Text          string         `json:"text"`
	Options       []AnswerOption `json:"options"`
	CorrectAnswer string         `json:"correctAnswer"`
	Explanation   string         `json:"explanation,omitempty"`
	Difficulty    string         `json:"difficulty,omitempty"`
	Language      string         `json:"language,omitempty"`
}

// Session is the mutable state of one in-progress exam.
type Session struct {
	ExamType      Type              `json:"examType"`
	Questions     []*Question       `json:"questions"`
	Answers       map[string]string `json:"answers"`
	CurrentIndex  int               `json:"currentIndex"`
	TimeRemaining int               `json:"timeRemaining"`
	TimeLimit     int               `json:"timeLimit"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// clone returns a copy safe to read or serialize outside the manager lock.
// The answers map is duplicated; questions are immutable once loaded and can
// be shared.
func (s *Session) clone() Session {
	copied := *s
	copied.Answers = make(map[string]string, len(s.Answers))
	for id, option := range s.Answers {
		copied.Answers[id] = option
	}
	return copied
}

// Snapshot is the persisted form of a Session, one slot per exam type.
type Snapshot struct {
	Session
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
}

// Evaluation is the per-question record inside a Result.
type Evaluation struct {
	Question      *Question `json:"question"`
	UserAnswer    string    `json:"userAnswer,omitempty"`
	IsCorrect     bool      `json:"isCorrect"`
	Explanation   string    `json:"explanation"`
	CorrectAnswer string    `json:"correctAnswer"`
}

// ScoreSummary is the aggregate output of the scoring engine.
type ScoreSummary struct {
	Score       int          `json:"score"`
	Total       int          `json:"total"`
	Percentage  int          `json:"percentage"`
	Evaluations []Evaluation `json:"evaluations"`
}

// CategoryScore aggregates correctness inside one category bucket.
type CategoryScore struct {
	Total      int `json:"total"`
	Correct    int `json:"correct"`
	Percentage int `json:"percentage"`
}

// Result is the record produced at submission. A single most-recent slot is
// kept; each submission overwrites the previous one.
type Result struct {
	ExamType       Type                     `json:"examType"`
	Score          int                      `json:"score"`
	TotalQuestions int                      `json:"totalQuestions"`
	Percentage     int                      `json:"percentage"`
	TimeTaken      string                   `json:"timeTaken"`
	Date           time.Time                `json:"date"`
	CategoryScores map[string]CategoryScore `json:"categoryScores"`
	Evaluations    []Evaluation             `json:"evaluations"`
	AnswersCount   int                      `json:"answersCount"`
}

// CategoryProgress tallies answered vs. total questions for one category of
// a live session.
type CategoryProgress struct {
	Total    int `json:"total"`
	Answered int `json:"answered"`
}

// FormatDuration renders elapsed seconds as H:MM:SS, or MM:SS under an hour.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	mins := (seconds % 3600) / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, mins, secs)
	}
	return fmt.Sprintf("%02d:%02d", mins, secs)
}
