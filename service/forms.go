package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mbolis/quick-forms/database"
	"github.com/mbolis/quick-forms/model"
)

type NewForm struct {
	Title     string        `json:"title" validate:"required"`
	Questions []NewQuestion `json:"questions" validate:"required,min=1,dive"`
}

type NewQuestion struct {
	Text    string         `json:"text" validate:"required"`
	Type    string         `json:"type" validate:"oneof=text mcq"`
	Options []model.Option `json:"options" validate:"required_if=Type mcq"`
}

// normalize trims text fields, drops blank options, and clears the options
// of text questions.
func (in *NewForm) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	if in.Questions != nil {
		// don't rewrite the caller's backing array
		in.Questions = append([]NewQuestion{}, in.Questions...)
	}
	for i := range in.Questions {
		q := &in.Questions[i]
		q.Text = strings.TrimSpace(q.Text)
		q.Type = strings.TrimSpace(q.Type)

		var opts []model.Option
		if q.Type == model.QuestionMCQ {
			for _, o := range q.Options {
				if text := strings.TrimSpace(o.Text); text != "" {
					opts = append(opts, model.Option{Text: text})
				}
			}
		}
		q.Options = opts
	}
}

type Submission struct {
	Answers []model.Answer `json:"answers"`
}

// Forms is the ownership-scoped access layer over forms and their responses.
// Owner-only operations report a form owned by someone else exactly like a
// missing one.
type Forms struct {
	store         database.Store
	strictAnswers bool
	now           func() time.Time
}

func NewForms(store database.Store, strictAnswers bool) *Forms {
	return &Forms{
		store:         store,
		strictAnswers: strictAnswers,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *Forms) CreateForm(ctx context.Context, userID string, in NewForm) (model.Form, error) {
	in.normalize()
	if err := check("Invalid form", in); err != nil {
		return model.Form{}, err
	}

	form := model.Form{
		Title:     in.Title,
		Questions: make([]model.Question, len(in.Questions)),
		CreatedBy: userID,
		CreatedAt: s.now(),
	}
	for i, q := range in.Questions {
		opts := q.Options
		if opts == nil {
			opts = []model.Option{}
		}
		form.Questions[i] = model.Question{Text: q.Text, Type: q.Type, Options: opts}
	}

	err := s.store.CreateForm(ctx, &form)
	if errors.Is(err, database.ErrNotFound) {
		return model.Form{}, ErrUnknownUser
	}
	if err != nil {
		return model.Form{}, errors.Wrap(err, "create form")
	}
	return form, nil
}

func (s *Forms) ListOwnForms(ctx context.Context, userID string) ([]model.Form, error) {
	forms, err := s.store.ListFormsByOwner(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list forms")
	}
	return forms, nil
}

func (s *Forms) GetOwnForm(ctx context.Context, userID, formID string) (model.Form, error) {
	form, err := s.store.FindOwnedForm(ctx, formID, userID)
	if errors.Is(err, database.ErrNotFound) {
		return model.Form{}, ErrNotFound
	}
	if err != nil {
		return model.Form{}, errors.Wrap(err, "get form")
	}
	return form, nil
}

// GetPublicForm serves any form to whoever knows its id.
func (s *Forms) GetPublicForm(ctx context.Context, formID string) (model.PublicForm, error) {
	form, err := s.store.FindForm(ctx, formID)
	if errors.Is(err, database.ErrNotFound) {
		return model.PublicForm{}, ErrNotFound
	}
	if err != nil {
		return model.PublicForm{}, errors.Wrap(err, "get public form")
	}
	return form.Public(), nil
}

func (s *Forms) SubmitResponse(ctx context.Context, formID string, in Submission) (model.FormResponse, error) {
	form, err := s.store.FindForm(ctx, formID)
	if errors.Is(err, database.ErrNotFound) {
		return model.FormResponse{}, ErrNotFound
	}
	if err != nil {
		return model.FormResponse{}, errors.Wrap(err, "submit response.get form")
	}

	if err := s.checkAnswers(form, in.Answers); err != nil {
		return model.FormResponse{}, err
	}

	resp := model.FormResponse{
		FormID:    form.ID,
		Answers:   in.Answers,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateResponse(ctx, &resp); err != nil {
		return model.FormResponse{}, errors.Wrap(err, "submit response")
	}
	return resp, nil
}

func (s *Forms) checkAnswers(form model.Form, answers []model.Answer) error {
	const msg = "Invalid answers"

	if answers == nil {
		return invalidInput(msg, errors.New("answers is required"))
	}
	if len(answers) != len(form.Questions) {
		return invalidInput(msg, fmt.Errorf("expected %d answers, got %d", len(form.Questions), len(answers)))
	}

	var causes []error
	for i, a := range answers {
		if strings.TrimSpace(a.Question) == "" {
			causes = append(causes, fmt.Errorf("answers[%d].question is required", i))
			continue
		}
		if !s.strictAnswers {
			continue
		}

		q := form.Questions[i]
		if a.Question != q.Text {
			causes = append(causes, fmt.Errorf("answers[%d].question does not match %q", i, q.Text))
		}
		if q.Type == model.QuestionMCQ && !q.HasOption(a.Answer) {
			causes = append(causes, fmt.Errorf("answers[%d].answer %q is not an option", i, a.Answer))
		}
	}
	if len(causes) > 0 {
		return invalidInput(msg, causes...)
	}
	return nil
}

func (s *Forms) ListResponses(ctx context.Context, userID, formID string) ([]model.FormResponse, error) {
	form, err := s.GetOwnForm(ctx, userID, formID)
	if err != nil {
		return nil, err
	}

	responses, err := s.store.ListResponses(ctx, form.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list responses")
	}
	return responses, nil
}

// DeleteForm removes an owned form together with all of its responses.
func (s *Forms) DeleteForm(ctx context.Context, userID, formID string) error {
	err := s.store.DeleteOwnedForm(ctx, formID, userID)
	if errors.Is(err, database.ErrNotFound) {
		return ErrNotFound
	}
	return errors.Wrap(err, "delete form")
}
