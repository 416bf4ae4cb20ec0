package api

import (
	"context"
	"net/http"

	"github.com/DukeRupert/trainerdesk/internal/domain"
)

// ListTrainings returns every training with its customer embedded. The
// endpoint answers with a bare array, not a HAL envelope.
func (c *Client) ListTrainings(ctx context.Context) ([]domain.Training, error) {
	const op = "trainings.list"

	var result []domain.Training
	if err := c.do(ctx, op, http.MethodGet, c.endpoint(trainingsFlatPath), nil, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return []domain.Training{}, nil
	}
	for i := range result {
		result[i].ResolveID()
	}
	return result, nil
}

// CreateTraining posts a new training for the customer referenced in in.
func (c *Client) CreateTraining(ctx context.Context, in domain.TrainingInput) (*domain.Training, error) {
	const op = "trainings.create"

	if err := in.Validate(); err != nil {
		return nil, err
	}

	var created domain.Training
	if err := c.do(ctx, op, http.MethodPost, c.endpoint(trainingsPath), in, &created); err != nil {
		return nil, err
	}
	created.ResolveID()
	return &created, nil
}

// DeleteTraining deletes the training with the given id.
func (c *Client) DeleteTraining(ctx context.Context, id domain.TrainingID) error {
	const op = "trainings.delete"

	if id <= 0 {
		return domain.Invalid(op, "training id is required")
	}
	return c.do(ctx, op, http.MethodDelete, c.endpoint(trainingsPath+"/"+id.String()), nil, nil)
}
