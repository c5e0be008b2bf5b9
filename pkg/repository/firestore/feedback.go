package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// feedbackDoc is the Firestore document representation of model.Feedback
type feedbackDoc struct {
	ID        model.FeedbackID `firestore:"ID"`
	AnswerID  model.RecordID   `firestore:"AnswerID"`
	Helpful   bool             `firestore:"Helpful"`
	Comment   string           `firestore:"Comment"`
	Question  string           `firestore:"Question"`
	CreatedAt time.Time        `firestore:"CreatedAt"`
}

func toFeedbackDoc(f *model.Feedback) *feedbackDoc {
	return &feedbackDoc{
		ID:        f.ID,
		AnswerID:  f.AnswerID,
		Helpful:   f.Helpful,
		Comment:   f.Comment,
		Question:  f.Question,
		CreatedAt: f.CreatedAt,
	}
}

func fromFeedbackDoc(d *feedbackDoc) *model.Feedback {
	return &model.Feedback{
		ID:        d.ID,
		AnswerID:  d.AnswerID,
		Helpful:   d.Helpful,
		Comment:   d.Comment,
		Question:  d.Question,
		CreatedAt: d.CreatedAt,
	}
}

type feedbackRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newFeedbackRepository(client *firestore.Client) *feedbackRepository {
	return &feedbackRepository{
		client: client,
	}
}

func (r *feedbackRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.collectionPrefix + FeedbackCollection)
}

// Create uses Create instead of Set so an id collision can never overwrite existing feedback
func (r *feedbackRepository) Create(ctx context.Context, feedback *model.Feedback) (*model.Feedback, error) {
	created := *feedback
	if created.ID == "" {
		created.ID = model.NewFeedbackID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	docRef := r.collection().Doc(string(created.ID))
	if _, err := docRef.Create(ctx, toFeedbackDoc(&created)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(err, "feedback already exists", goerr.V("id", created.ID))
		}
		return nil, goerr.Wrap(err, "failed to create feedback", goerr.V("id", created.ID))
	}

	return &created, nil
}

func (r *feedbackRepository) List(ctx context.Context, filter model.FeedbackFilter) ([]*model.Feedback, error) {
	q := r.collection().Query
	if filter.AnswerID != "" {
		q = q.Where("AnswerID", "==", string(filter.AnswerID))
	}
	if filter.Helpful != nil {
		q = q.Where("Helpful", "==", *filter.Helpful)
	}
	if !filter.Since.IsZero() {
		q = q.Where("CreatedAt", ">=", filter.Since)
	}
	q = q.OrderBy("CreatedAt", firestore.Desc)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	result := make([]*model.Feedback, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate feedback")
		}

		var d feedbackDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal feedback", goerr.V("doc", doc.Ref.ID))
		}
		result = append(result, fromFeedbackDoc(&d))
	}

	return result, nil
}
