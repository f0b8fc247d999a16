package exam

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBank(t *testing.T, dir, track, stem string, questions []*Question) {
	t.Helper()
	sub := filepath.Join(dir, track)
	require.NoError(t, os.MkdirAll(sub, 0o755))
	data, err := json.Marshal(questions)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(sub, stem+".json"), data, 0o644))
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	writeBank(t, dir, "pro", "numerical-ability", pool(CategoryNumerical, "num", 12))
	writeBank(t, dir, "pro", "verbal-ability", pool(CategoryVerbal, "verb", 8))
	writeBank(t, dir, "subpro", "clerical-ability", pool(CategoryClerical, "cler", 5))

	repo, err := LoadFromDir(dir, zerolog.Nop())
	require.NoError(t, err)

	assert.Len(t, repo.QuestionsFor(TypeProfessional, CategoryNumerical), 12)
	assert.Len(t, repo.QuestionsFor(TypeProfessional, CategoryVerbal), 8)
	assert.Len(t, repo.QuestionsFor(TypeSubProfessional, CategoryClerical), 5)

	// Missing bank files degrade to empty pools, not errors.
	assert.Empty(t, repo.QuestionsFor(TypeProfessional, CategoryConstitution))
	assert.Empty(t, repo.QuestionsFor(TypeSubProfessional, CategoryNumerical))
}

func TestLoadFromDirMalformedFileDegrades(t *testing.T) {
	dir := t.TempDir()
	writeBank(t, dir, "pro", "numerical-ability", pool(CategoryNumerical, "num", 4))

	sub := filepath.Join(dir, "pro")
	require.NoError(t, os.WriteFile(filepath.Join(sub, "verbal-ability.json"), []byte("{not json"), 0o644))

	repo, err := LoadFromDir(dir, zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, repo.QuestionsFor(TypeProfessional, CategoryVerbal))
	assert.Len(t, repo.QuestionsFor(TypeProfessional, CategoryNumerical), 4)
}

func TestLoadFromDirSkipsMalformedAndDuplicateEntries(t *testing.T) {
	dir := t.TempDir()
	questions := pool(CategoryNumerical, "num", 3)
	questions = append(questions,
		&Question{ID: "", Text: "no id", CorrectAnswer: "a", Options: []AnswerOption{{ID: "a"}, {ID: "b"}}},
		&Question{ID: "one-option", Text: "short", CorrectAnswer: "a", Options: []AnswerOption{{ID: "a"}}},
		&Question{ID: "num-0", Text: "duplicate id", CorrectAnswer: "a", Options: []AnswerOption{{ID: "a"}, {ID: "b"}}},
	)
	writeBank(t, dir, "pro", "numerical-ability", questions)

	repo, err := LoadFromDir(dir, zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, repo.QuestionsFor(TypeProfessional, CategoryNumerical), 3)
}

func TestLoadFromDirCrossTrackDuplicateKeepsProfessional(t *testing.T) {
	dir := t.TempDir()
	writeBank(t, dir, "pro", "numerical-ability", pool(CategoryNumerical, "dup", 2))
	writeBank(t, dir, "subpro", "numerical-ability", pool(CategoryNumerical, "dup", 2))

	repo, err := LoadFromDir(dir, zerolog.Nop())
	require.NoError(t, err)

	// The professional bank loads first, so shared ids always land there.
	assert.Len(t, repo.QuestionsFor(TypeProfessional, CategoryNumerical), 2)
	assert.Empty(t, repo.QuestionsFor(TypeSubProfessional, CategoryNumerical))
}

func TestLoadFromDirEmptyBankFails(t *testing.T) {
	_, err := LoadFromDir(t.TempDir(), zerolog.Nop())
	assert.ErrorIs(t, err, ErrNoQuestionsAvailable)
}

func TestLoadFromDirFillsMissingCategory(t *testing.T) {
	dir := t.TempDir()
	questions := pool("", "blank", 2)
	writeBank(t, dir, "pro", "ra-6713", questions)

	repo, err := LoadFromDir(dir, zerolog.Nop())
	require.NoError(t, err)

	loaded := repo.QuestionsFor(TypeProfessional, CategoryRA6713)
	require.Len(t, loaded, 2)
	for _, q := range loaded {
		assert.Equal(t, CategoryRA6713, q.Category)
	}
}

func TestAvailableCounts(t *testing.T) {
	repo := fullBankRepo(t)

	counts := repo.AvailableCounts(TypeProfessional)
	assert.Equal(t, CategoryCount{Total: 40, Target: 25}, counts[CategoryNumerical])
	assert.Equal(t, CategoryCount{Total: 40, Target: 10}, counts[CategoryGeneralInfo])

	assert.Empty(t, repo.AvailableCounts(TypePractice))
}

func TestQuestionsForUnknownTrackOrCategory(t *testing.T) {
	repo := fullBankRepo(t)
	assert.Empty(t, repo.QuestionsFor(TypePractice, CategoryNumerical))
	assert.Empty(t, repo.QuestionsFor(TypeProfessional, "Astral Projection"))
}
