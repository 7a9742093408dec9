package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	ids []string
	err error
}

func (f *fakeLister) List(_ context.Context) ([]string, error) {
	return f.ids, f.err
}

func TestNewModels_DiffAndOrder(t *testing.T) {
	available := []string{"llama3.1:8b", "llama3.2:3b", "qwen2.5:7b", "llama3.1:8b"}
	running := []string{"llama3.1:8b"}

	fresh := NewModels(available, running)

	assert.Equal(t, []string{"llama3.2:3b", "qwen2.5:7b"}, fresh)
}

func TestNewModels_NormalizesBeforeDiff(t *testing.T) {
	fresh := NewModels([]string{" LLAMA3.2:3b "}, []string{"llama3.2:3b"})
	assert.Empty(t, fresh)
}

func TestModelScanner_ListerFailureYieldsEmpty(t *testing.T) {
	s := NewModelScanner(&fakeLister{err: errors.New("exit status 1")}, nil)
	assert.Empty(t, s.Scan(context.Background()))
}

func TestModelScanner_NilListerYieldsEmpty(t *testing.T) {
	s := NewModelScanner(nil, nil)
	assert.Empty(t, s.Scan(context.Background()))
}

func TestCLILister_ScrapesTrackedLines(t *testing.T) {
	out := "NAME            SIZE\n" +
		"llama3.2:3b     2.0 GB\n" +
		"qwen2.5:7b      4.7 GB\n" +
		"nomic-embed-text:latest  274 MB\n"
	l := NewCLILister("echo", []string{"-n", out}, []string{"llama", "qwen"}, 5*time.Second)

	ids, err := l.List(context.Background())

	require.NoError(t, err)
	assert.Contains(t, ids, "llama3.2:3b")
	assert.Contains(t, ids, "qwen2.5:7b")
	// Untracked lines never contribute identifiers
	assert.NotContains(t, ids, "nomic-embed-text:latest")
}

func TestCLILister_MissingCommandFails(t *testing.T) {
	l := NewCLILister("definitely-not-a-real-binary-xyz", nil, []string{"llama"}, 2*time.Second)

	_, err := l.List(context.Background())

	assert.Error(t, err)
}
