package services

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"apiworkbench/models"
	"apiworkbench/store"
	"apiworkbench/utils"
)

var methodRule = validation.In(toAny(models.HTTPMethods)...).Error("method must be one of GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS")

var bodyTypeRule = validation.By(func(value interface{}) error {
	var bt models.BodyType
	switch v := value.(type) {
	case models.BodyType:
		bt = v
	case *models.BodyType:
		if v == nil {
			return nil
		}
		bt = *v
	}
	if !bt.Valid() {
		return validation.NewError("validation_body_type", "body_type must be one of json, form, raw")
	}
	return nil
})

func toAny(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

type CreateRequestInput struct {
	Name        string            `json:"name"`
	Method      string            `json:"method"`
	URL         string            `json:"url"`
	Headers     map[string]string `json:"headers"`
	QueryParams map[string]string `json:"query_params"`
	BodyType    models.BodyType   `json:"body_type"`
	Body        string            `json:"body"`
	FolderID    *int64            `json:"folder_id"`
}

func (in CreateRequestInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, utils.NameRules...),
		validation.Field(&in.Method, validation.Required, methodRule),
		validation.Field(&in.URL, validation.Required.Error("url is required")),
		validation.Field(&in.BodyType, bodyTypeRule),
	)
}

// UpdateRequestInput carries a partial update; nil fields are left alone.
// FolderID is applied only when SetFolder is true.
type UpdateRequestInput struct {
	Name        *string
	Method      *string
	URL         *string
	Headers     map[string]string
	QueryParams map[string]string
	BodyType    *models.BodyType
	Body        *string
	SetFolder   bool
	FolderID    *int64
	SortOrder   *int
}

func (in UpdateRequestInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.When(in.Name != nil, utils.NameRules...)),
		validation.Field(&in.Method, validation.When(in.Method != nil, validation.Required, methodRule)),
		validation.Field(&in.URL, validation.When(in.URL != nil, validation.Required.Error("url is required"))),
		validation.Field(&in.BodyType, bodyTypeRule),
	)
}

type RequestService struct {
	store  store.Store
	now    func() time.Time
	logger *slog.Logger
}

func NewRequestService(st store.Store, opts ...Option) *RequestService {
	cfg := newServiceConfig("requests", opts)
	return &RequestService{store: st, now: cfg.now, logger: cfg.logger}
}

func (s *RequestService) ListRequests(ctx context.Context) ([]models.Request, error) {
	requests, err := s.store.Requests().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return requests, nil
}

// ListFolderRequests lists the requests of one folder; nil lists standalone requests.
func (s *RequestService) ListFolderRequests(ctx context.Context, folderID *int64) ([]models.Request, error) {
	if folderID != nil {
		if _, err := s.store.Folders().Get(ctx, *folderID); err != nil {
			return nil, translate(err, "Folder", *folderID)
		}
	}
	requests, err := s.store.Requests().ListByFolder(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return requests, nil
}

func (s *RequestService) GetRequest(ctx context.Context, id int64) (*models.Request, error) {
	request, err := s.store.Requests().Get(ctx, id)
	if err != nil {
		return nil, translate(err, "Request", id)
	}
	return request, nil
}

func (s *RequestService) CreateRequest(ctx context.Context, in CreateRequestInput) (*models.Request, error) {
	in.Method = strings.ToUpper(in.Method)
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	request := &models.Request{
		Name:        in.Name,
		Method:      in.Method,
		URL:         in.URL,
		Headers:     nonNilMap(in.Headers),
		QueryParams: nonNilMap(in.QueryParams),
		BodyType:    in.BodyType,
		Body:        in.Body,
		FolderID:    in.FolderID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		if in.FolderID != nil {
			if _, err := tx.Folders().Get(ctx, *in.FolderID); err != nil {
				return translate(err, "Folder", *in.FolderID)
			}
		}
		if err := tx.Requests().Create(ctx, request); err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("request created", "request_id", request.ID, "folder_id", refValue(request.FolderID))
	return request, nil
}

func (s *RequestService) UpdateRequest(ctx context.Context, id int64, in UpdateRequestInput) (*models.Request, error) {
	if in.Method != nil {
		upper := strings.ToUpper(*in.Method)
		in.Method = &upper
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var updated *models.Request
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		request, err := tx.Requests().Get(ctx, id)
		if err != nil {
			return translate(err, "Request", id)
		}

		if in.Name != nil {
			request.Name = *in.Name
		}
		if in.Method != nil {
			request.Method = *in.Method
		}
		if in.URL != nil {
			request.URL = *in.URL
		}
		if in.Headers != nil {
			request.Headers = maps.Clone(in.Headers)
		}
		if in.QueryParams != nil {
			request.QueryParams = maps.Clone(in.QueryParams)
		}
		if in.BodyType != nil {
			request.BodyType = *in.BodyType
		}
		if in.Body != nil {
			request.Body = *in.Body
		}
		if in.SortOrder != nil {
			request.SortOrder = *in.SortOrder
		}
		if in.SetFolder {
			if in.FolderID != nil {
				if _, err := tx.Folders().Get(ctx, *in.FolderID); err != nil {
					return translate(err, "Folder", *in.FolderID)
				}
			}
			request.FolderID = in.FolderID
		}

		request.UpdatedAt = s.now()
		if err := tx.Requests().Update(ctx, request); err != nil {
			return translate(err, "Request", id)
		}
		updated = request
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteRequest removes the request and detaches the history entries that
// referenced it. The history itself is kept.
func (s *RequestService) DeleteRequest(ctx context.Context, id int64) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		if _, err := tx.Requests().Get(ctx, id); err != nil {
			return translate(err, "Request", id)
		}
		if err := tx.History().ClearRequestRef(ctx, id); err != nil {
			return fmt.Errorf("failed to detach history: %w", err)
		}
		if err := tx.Requests().Delete(ctx, id); err != nil {
			return translate(err, "Request", id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("request deleted", "request_id", id)
	return nil
}

// ReorderRequests sets each listed request's sort_order to its position.
// Unknown ids are skipped.
func (s *RequestService) ReorderRequests(ctx context.Context, ids []int64) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		now := s.now()
		for position, id := range ids {
			request, err := tx.Requests().Get(ctx, id)
			if isStoreNotFound(err) {
				continue
			}
			if err != nil {
				return translate(err, "Request", id)
			}
			request.SortOrder = position
			request.UpdatedAt = now
			if err := tx.Requests().Update(ctx, request); err != nil {
				return fmt.Errorf("failed to reorder request %d: %w", id, err)
			}
		}
		return nil
	})
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return maps.Clone(m)
}
