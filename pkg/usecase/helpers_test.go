package usecase_test

import (
	"context"
	"crypto/sha256"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/domain/model"
)

// stubLoader serves a replaceable corpus
type stubLoader struct {
	mu     sync.Mutex
	corpus *model.Corpus
}

func newStubLoader(records ...*model.QARecord) *stubLoader {
	return &stubLoader{corpus: &model.Corpus{Records: records}}
}

func (l *stubLoader) Load(ctx context.Context) (*model.Corpus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := *l.corpus
	c.Records = append([]*model.QARecord(nil), l.corpus.Records...)
	return &c, nil
}

func (l *stubLoader) Set(records ...*model.QARecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.corpus = &model.Corpus{Records: records}
}

// hashEmbedder maps a text to a vector derived from its sha256, so equal texts
// get equal vectors and different texts almost never collide
type hashEmbedder struct {
	mu       sync.Mutex
	model    string
	fail     bool
	gate     chan struct{}
	entered  chan struct{}
	embedded int
	calls    int
}

func newHashEmbedder() *hashEmbedder {
	return &hashEmbedder{model: "hash@8"}
}

func (e *hashEmbedder) ModelID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model
}

func (e *hashEmbedder) SetFail(fail bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail = fail
}

func (e *hashEmbedder) SetModel(m string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.model = m
}

// Block makes the next Embed call wait until the returned release is called
func (e *hashEmbedder) Block() (entered <-chan struct{}, release func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gate = make(chan struct{})
	e.entered = make(chan struct{})
	gate := e.gate
	return e.entered, func() { close(gate) }
}

func (e *hashEmbedder) Embedded() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.embedded
}

func (e *hashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	gate, entered := e.gate, e.entered
	e.gate, e.entered = nil, nil
	e.mu.Unlock()

	if gate != nil {
		close(entered)
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.fail {
		return nil, goerr.New("provider unavailable")
	}
	e.embedded += len(texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t)
	}
	return out, nil
}

func (e *hashEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail {
		return nil, goerr.New("provider unavailable")
	}
	return hashVector(text), nil
}

func hashVector(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	v := make([]float32, 8)
	for i := range v {
		v[i] = float32(int(sum[i])-128) / 128
	}
	return v
}

func qa(id, question, answer, category string) *model.QARecord {
	return &model.QARecord{ID: model.RecordID(id), Question: question, Answer: answer, Category: category}
}
