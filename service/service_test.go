package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/quick-forms/auth"
	"github.com/mbolis/quick-forms/database"
	"github.com/mbolis/quick-forms/model"
)

type fixture struct {
	store    database.Store
	forms    *Forms
	accounts *Accounts
	tokens   *auth.Tokens
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens := auth.NewTokens("test-secret", time.Hour)
	return &fixture{
		store:    store,
		forms:    NewForms(store, false),
		accounts: NewAccounts(store, tokens),
		tokens:   tokens,
	}
}

func (fx *fixture) register(t *testing.T, email string) model.User {
	t.Helper()
	user, err := fx.accounts.Register(context.Background(), Registration{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  "correct horse",
	})
	require.NoError(t, err)
	return user
}

func surveyForm() NewForm {
	return NewForm{
		Title: "Survey",
		Questions: []NewQuestion{
			{Text: "Name?", Type: "text"},
			{Text: "Color?", Type: "mcq", Options: []model.Option{{Text: "Red"}, {Text: "Blue"}}},
		},
	}
}

func assertSameForm(t *testing.T, want, got model.Form) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Questions, got.Questions)
	assert.Equal(t, want.CreatedBy, got.CreatedBy)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "createdAt %v != %v", want.CreatedAt, got.CreatedAt)
}

func TestCreateAndGetOwnForm(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	owner := fx.register(t, "a@example.com")

	form, err := fx.forms.CreateForm(ctx, owner.ID, surveyForm())
	require.NoError(t, err)
	require.NotEmpty(t, form.ID)
	assert.Equal(t, owner.ID, form.CreatedBy)
	assert.Equal(t, []model.Question{
		{Text: "Name?", Type: "text", Options: []model.Option{}},
		{Text: "Color?", Type: "mcq", Options: []model.Option{{Text: "Red"}, {Text: "Blue"}}},
	}, form.Questions)

	got, err := fx.forms.GetOwnForm(ctx, owner.ID, form.ID)
	require.NoError(t, err)
	assertSameForm(t, form, got)

	again, err := fx.forms.GetOwnForm(ctx, owner.ID, form.ID)
	require.NoError(t, err)
	assertSameForm(t, got, again)
}

func TestCreateFormUnknownOwner(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.forms.CreateForm(ctx, "deleted-user", surveyForm())
	assert.ErrorIs(t, err, ErrUnknownUser)

	forms, err := fx.forms.ListOwnForms(ctx, "deleted-user")
	require.NoError(t, err)
	assert.Empty(t, forms)
}

func TestCreateFormNormalizes(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	owner := fx.register(t, "a@example.com")

	form, err := fx.forms.CreateForm(ctx, owner.ID, NewForm{
		Title: "  Padded  ",
		Questions: []NewQuestion{
			{Text: " Free text ", Type: "text", Options: []model.Option{{Text: "ignored"}}},
			{Text: "Pick", Type: "mcq", Options: []model.Option{{Text: " A "}, {Text: "  "}, {Text: "B"}}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Padded", form.Title)
	assert.Equal(t, "Free text", form.Questions[0].Text)
	assert.Empty(t, form.Questions[0].Options)
	assert.Equal(t, []model.Option{{Text: "A"}, {Text: "B"}}, form.Questions[1].Options)
}

func TestCreateFormValidation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	owner := fx.register(t, "a@example.com")

	cases := map[string]NewForm{
		"blank title":     {Title: "  ", Questions: surveyForm().Questions},
		"no questions":    {Title: "Survey"},
		"empty questions": {Title: "Survey", Questions: []NewQuestion{}},
		"blank question":  {Title: "Survey", Questions: []NewQuestion{{Text: " ", Type: "text"}}},
		"bad type":        {Title: "Survey", Questions: []NewQuestion{{Text: "Q", Type: "scale"}}},
		"mcq no options":  {Title: "Survey", Questions: []NewQuestion{{Text: "Q", Type: "mcq"}}},
		"mcq blank opts":  {Title: "Survey", Questions: []NewQuestion{{Text: "Q", Type: "mcq", Options: []model.Option{{Text: ""}}}}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := fx.forms.CreateForm(ctx, owner.ID, in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	forms, err := fx.forms.ListOwnForms(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, forms)
}

func TestCreateFormValidationMessage(t *testing.T) {
	fx := newFixture(t)
	owner := fx.register(t, "a@example.com")

	_, err := fx.forms.CreateForm(context.Background(), owner.ID, NewForm{
		Questions: []NewQuestion{{Text: "Q", Type: "mcq"}},
	})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "title is required")
	assert.Contains(t, err.Error(), "questions[0].options is required")
}

func TestListOwnForms(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	alice := fx.register(t, "alice@example.com")
	bob := fx.register(t, "bob@example.com")

	var created []string
	for _, title := range []string{"first", "second", "third"} {
		in := surveyForm()
		in.Title = title
		f, err := fx.forms.CreateForm(ctx, alice.ID, in)
		require.NoError(t, err)
		created = append(created, f.ID)
	}
	_, err := fx.forms.CreateForm(ctx, bob.ID, surveyForm())
	require.NoError(t, err)

	forms, err := fx.forms.ListOwnForms(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, forms, 3)
	for i, f := range forms {
		assert.Equal(t, created[i], f.ID)
		assert.Equal(t, alice.ID, f.CreatedBy)
	}

	forms, err = fx.forms.ListOwnForms(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, forms)
	assert.Empty(t, forms)
}

func TestOwnershipHidesForms(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	alice := fx.register(t, "alice@example.com")
	bob := fx.register(t, "bob@example.com")

	form, err := fx.forms.CreateForm(ctx, alice.ID, surveyForm())
	require.NoError(t, err)

	_, err = fx.forms.GetOwnForm(ctx, bob.ID, form.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = fx.forms.GetOwnForm(ctx, alice.ID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = fx.forms.ListResponses(ctx, bob.ID, form.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, fx.forms.DeleteForm(ctx, bob.ID, form.ID), ErrNotFound)
	_, err = fx.forms.GetOwnForm(ctx, alice.ID, form.ID)
	assert.NoError(t, err)
}

func TestGetPublicForm(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	alice := fx.register(t, "alice@example.com")

	form, err := fx.forms.CreateForm(ctx, alice.ID, surveyForm())
	require.NoError(t, err)

	public, err := fx.forms.GetPublicForm(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, form.ID, public.ID)
	assert.Equal(t, form.Title, public.Title)
	assert.Equal(t, form.Questions, public.Questions)

	_, err = fx.forms.GetPublicForm(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitResponse(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	alice := fx.register(t, "alice@example.com")

	form, err := fx.forms.CreateForm(ctx, alice.ID, surveyForm())
	require.NoError(t, err)

	resp, err := fx.forms.SubmitResponse(ctx, form.ID, Submission{Answers: []model.Answer{
		{Question: "Name?", Answer: "Bob"},
		{Question: "Color?", Answer: "Blue"},
	}})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, form.ID, resp.FormID)

	responses, err := fx.forms.ListResponses(ctx, alice.ID, form.ID)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, resp.ID, responses[0].ID)
	assert.Equal(t, []model.Answer{
		{Question: "Name?", Answer: "Bob"},
		{Question: "Color?", Answer: "Blue"},
	}, responses[0].Answers)

	_, err = fx.forms.SubmitResponse(ctx, "missing", Submission{Answers: []model.Answer{}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitResponseRejects(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	alice := fx.register(t, "alice@example.com")

	form, err := fx.forms.CreateForm(ctx, alice.ID, surveyForm())
	require.NoError(t, err)

	cases := map[string][]model.Answer{
		"missing":   nil,
		"empty":     {},
		"too few":   {{Question: "Name?", Answer: "Bob"}},
		"too many":  {{Question: "Name?", Answer: "Bob"}, {Question: "Color?", Answer: "Red"}, {Question: "Extra", Answer: "x"}},
		"no prompt": {{Question: "Name?", Answer: "Bob"}, {Question: " ", Answer: "Red"}},
	}
	for name, answers := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := fx.forms.SubmitResponse(ctx, form.ID, Submission{Answers: answers})
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	responses, err := fx.forms.ListResponses(ctx, alice.ID, form.ID)
	require.NoError(t, err)
	assert.Empty(t, responses)
}

func TestSubmitResponseStrictAnswers(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	alice := fx.register(t, "alice@example.com")

	form, err := fx.forms.CreateForm(ctx, alice.ID, surveyForm())
	require.NoError(t, err)

	offList := Submission{Answers: []model.Answer{
		{Question: "Name?", Answer: "Bob"},
		{Question: "Color?", Answer: "Green"},
	}}

	// lenient by default
	_, err = fx.forms.SubmitResponse(ctx, form.ID, offList)
	require.NoError(t, err)

	strict := NewForms(fx.store, true)
	_, err = strict.SubmitResponse(ctx, form.ID, offList)
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), `"Green" is not an option`)

	_, err = strict.SubmitResponse(ctx, form.ID, Submission{Answers: []model.Answer{
		{Question: "Name?", Answer: "Bob"},
		{Question: "Colour?", Answer: "Red"},
	}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = strict.SubmitResponse(ctx, form.ID, Submission{Answers: []model.Answer{
		{Question: "Name?", Answer: "anything goes"},
		{Question: "Color?", Answer: "Red"},
	}})
	assert.NoError(t, err)
}

func TestListResponsesNewestFirst(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	alice := fx.register(t, "alice@example.com")

	form, err := fx.forms.CreateForm(ctx, alice.ID, surveyForm())
	require.NoError(t, err)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	fx.forms.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for _, name := range []string{"one", "two", "three"} {
		_, err := fx.forms.SubmitResponse(ctx, form.ID, Submission{Answers: []model.Answer{
			{Question: "Name?", Answer: name},
			{Question: "Color?", Answer: "Red"},
		}})
		require.NoError(t, err)
	}

	responses, err := fx.forms.ListResponses(ctx, alice.ID, form.ID)
	require.NoError(t, err)
	require.Len(t, responses, 3)
	assert.Equal(t, "three", responses[0].Answers[0].Answer)
	assert.Equal(t, "two", responses[1].Answers[0].Answer)
	assert.Equal(t, "one", responses[2].Answers[0].Answer)
}

func TestDeleteFormCascades(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	alice := fx.register(t, "alice@example.com")

	form, err := fx.forms.CreateForm(ctx, alice.ID, surveyForm())
	require.NoError(t, err)
	kept, err := fx.forms.CreateForm(ctx, alice.ID, surveyForm())
	require.NoError(t, err)

	answers := Submission{Answers: []model.Answer{
		{Question: "Name?", Answer: "Bob"},
		{Question: "Color?", Answer: "Red"},
	}}
	_, err = fx.forms.SubmitResponse(ctx, form.ID, answers)
	require.NoError(t, err)
	_, err = fx.forms.SubmitResponse(ctx, kept.ID, answers)
	require.NoError(t, err)

	require.NoError(t, fx.forms.DeleteForm(ctx, alice.ID, form.ID))

	_, err = fx.forms.GetPublicForm(ctx, form.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	orphans, err := fx.store.ListResponses(ctx, form.ID)
	require.NoError(t, err)
	assert.Empty(t, orphans)

	responses, err := fx.forms.ListResponses(ctx, alice.ID, kept.ID)
	require.NoError(t, err)
	assert.Len(t, responses, 1)

	assert.ErrorIs(t, fx.forms.DeleteForm(ctx, alice.ID, form.ID), ErrNotFound)
}
