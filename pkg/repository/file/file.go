// Package file stores feedback as a JSON Lines log on local disk.
package file

import (
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/domain/interfaces"
)

type File struct {
	feedback *feedbackRepository
}

var _ interfaces.Repository = &File{}

// New opens (or creates) the feedback log at path
func New(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, goerr.Wrap(err, "failed to create feedback directory", goerr.V("path", path))
	}
	return &File{
		feedback: newFeedbackRepository(path),
	}, nil
}

func (f *File) Feedback() interfaces.FeedbackRepository {
	return f.feedback
}

func (f *File) Close() error {
	return nil
}
