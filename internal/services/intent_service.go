package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"omnia/internal/datatable"
	"omnia/internal/domain"
	"omnia/internal/domain/models"
	"omnia/internal/logging"
	"omnia/internal/repositories"
	"omnia/internal/utils"
)

type IntentService struct {
	Repo repositories.IntentRepository
	Log  logging.Logger

	validate *validator.Validate
	now      func() time.Time
	newID    func() string
}

func NewIntentService(repo repositories.IntentRepository, log logging.Logger) *IntentService {
	return &IntentService{
		Repo:     repo,
		Log:      log,
		validate: newValidator(),
		now:      utils.NowUTC,
		newID:    uuid.NewString,
	}
}

func (s *IntentService) List(ctx context.Context, q datatable.Query) (domain.Page[models.Intent], error) {
	rows, total, err := s.Repo.List(ctx, q)
	if err != nil {
		return domain.Page[models.Intent]{}, domain.InternalError{Msg: "could not list intents", Err: err}
	}
	return domain.NewPage(rows, q, total), nil
}

func (s *IntentService) Get(ctx context.Context, id string) (models.Intent, error) {
	if strings.TrimSpace(id) == "" {
		return models.Intent{}, domain.ValidationError{Field: "id", Msg: "is required"}
	}
	return s.Repo.Get(ctx, id)
}

func (s *IntentService) Create(ctx context.Context, in models.IntentInput) (models.Intent, error) {
	in, err := s.Normalize(in)
	if err != nil {
		return models.Intent{}, err
	}
	now := s.now()
	it := models.Intent{
		ID:          s.newID(),
		Name:        in.Name,
		Slug:        slug.Make(in.Name),
		Description: in.Description,
		Questions:   in.Questions,
		Responses:   in.Responses,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.Create(ctx, &it); err != nil {
		return models.Intent{}, err
	}
	s.Log.Info(ctx, "intent created", "intent_id", it.ID, "name", it.Name)
	return it, nil
}

func (s *IntentService) Update(ctx context.Context, id string, in models.IntentInput) (models.Intent, error) {
	in, err := s.Normalize(in)
	if err != nil {
		return models.Intent{}, err
	}
	it, err := s.Repo.Get(ctx, id)
	if err != nil {
		return models.Intent{}, err
	}
	it.Name = in.Name
	it.Slug = slug.Make(in.Name)
	it.Description = in.Description
	it.Questions = in.Questions
	it.Responses = in.Responses
	it.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, &it); err != nil {
		return models.Intent{}, err
	}
	s.Log.Info(ctx, "intent updated", "intent_id", it.ID)
	return it, nil
}

func (s *IntentService) Delete(ctx context.Context, id string) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	s.Log.Info(ctx, "intent deleted", "intent_id", id)
	return nil
}

// Normalize trims the input, drops blank questions and responses and
// validates the result. Validation failures come back as domain.FieldErrors
// keyed by JSON field name.
func (s *IntentService) Normalize(in models.IntentInput) (models.IntentInput, error) {
	in.Name = utils.NormalizeSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Questions = utils.CleanList(in.Questions)
	in.Responses = utils.CleanList(in.Responses)

	fe := fieldErrors(s.validate.Struct(in))
	if _, bad := fe["name"]; !bad && slug.Make(in.Name) == "" {
		fe.Add("name", "must contain letters or digits")
	}
	return in, fe.OrNil()
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func fieldErrors(err error) domain.FieldErrors {
	fe := domain.FieldErrors{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fe
	}
	for _, e := range verrs {
		field := e.Field()
		if i := strings.IndexByte(field, '['); i > 0 {
			field = field[:i]
		}
		fe.Add(field, messageFor(e))
	}
	return fe
}

func messageFor(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must have at most %s characters", e.Param())
	case "email":
		return "must be a valid email address"
	case "alphanum":
		return "may only contain letters and digits"
	default:
		return "is invalid"
	}
}
