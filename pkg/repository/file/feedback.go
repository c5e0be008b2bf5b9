package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/domain/model"
	"github.com/secmon-lab/madoguchi/pkg/utils/logging"
	"github.com/secmon-lab/madoguchi/pkg/utils/safe"
)

const lockRetryDelay = 20 * time.Millisecond

// feedbackLine is one JSON line of the log
type feedbackLine struct {
	ID        model.FeedbackID `json:"id"`
	AnswerID  model.RecordID   `json:"answer_id"`
	Helpful   bool             `json:"helpful"`
	Comment   string           `json:"comment,omitempty"`
	Question  string           `json:"question,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

func toLine(f *model.Feedback) *feedbackLine {
	return &feedbackLine{
		ID:        f.ID,
		AnswerID:  f.AnswerID,
		Helpful:   f.Helpful,
		Comment:   f.Comment,
		Question:  f.Question,
		CreatedAt: f.CreatedAt,
	}
}

func fromLine(l *feedbackLine) *model.Feedback {
	return &model.Feedback{
		ID:        l.ID,
		AnswerID:  l.AnswerID,
		Helpful:   l.Helpful,
		Comment:   l.Comment,
		Question:  l.Question,
		CreatedAt: l.CreatedAt,
	}
}

// feedbackRepository appends to a log shared by every process on the host.
// Each append is a single write under an exclusive file lock.
type feedbackRepository struct {
	path     string
	lockPath string
	mu       sync.Mutex
}

func newFeedbackRepository(path string) *feedbackRepository {
	return &feedbackRepository{
		path:     path,
		lockPath: path + ".lock",
	}
}

func (r *feedbackRepository) Create(ctx context.Context, feedback *model.Feedback) (*model.Feedback, error) {
	created := *feedback
	if created.ID == "" {
		created.ID = model.NewFeedbackID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	raw, err := json.Marshal(toLine(&created))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal feedback")
	}
	raw = append(raw, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()

	lock := flock.New(r.lockPath)
	if ok, err := lock.TryLockContext(ctx, lockRetryDelay); err != nil || !ok {
		return nil, goerr.New("failed to lock feedback log", goerr.V("path", r.path), goerr.V("error", err))
	}
	defer func() { _ = lock.Unlock() }()

	// #nosec G304 - path comes from operator configuration
	fd, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open feedback log", goerr.V("path", r.path))
	}
	defer safe.Close(ctx, fd)

	if _, err := fd.Write(raw); err != nil {
		return nil, goerr.Wrap(err, "failed to append feedback", goerr.V("path", r.path))
	}
	if err := fd.Sync(); err != nil {
		return nil, goerr.Wrap(err, "failed to sync feedback log", goerr.V("path", r.path))
	}

	return &created, nil
}

func (r *feedbackRepository) List(ctx context.Context, filter model.FeedbackFilter) ([]*model.Feedback, error) {
	lock := flock.New(r.lockPath)
	if ok, err := lock.TryRLockContext(ctx, lockRetryDelay); err != nil || !ok {
		return nil, goerr.New("failed to lock feedback log", goerr.V("path", r.path), goerr.V("error", err))
	}
	defer func() { _ = lock.Unlock() }()

	// #nosec G304 - path comes from operator configuration
	fd, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*model.Feedback{}, nil
		}
		return nil, goerr.Wrap(err, "failed to open feedback log", goerr.V("path", r.path))
	}
	defer safe.Close(ctx, fd)

	result := make([]*model.Feedback, 0)
	scanner := bufio.NewScanner(fd)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var l feedbackLine
		if err := json.Unmarshal(scanner.Bytes(), &l); err != nil {
			// a crash can leave a torn last line; skip it rather than fail the listing
			logging.From(ctx).Warn("skipping malformed feedback line", "path", r.path, "line", lineNo)
			continue
		}
		f := fromLine(&l)
		if filter.Match(f) {
			result = append(result, f)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to read feedback log", goerr.V("path", r.path))
	}

	slices.Reverse(result)
	slices.SortStableFunc(result, func(a, b *model.Feedback) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}
