package model

import "time"

const (
	QuestionText = "text"
	QuestionMCQ  = "mcq"
)

type User struct {
	ID           string    `json:"_id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Form struct {
	ID        string     `json:"_id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
	CreatedBy string     `json:"createdBy"`
	CreatedAt time.Time  `json:"createdAt"`
}

// PublicForm is the view of a Form served to anonymous respondents.
type PublicForm struct {
	ID        string     `json:"_id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (f Form) Public() PublicForm {
	return PublicForm{
		ID:        f.ID,
		Title:     f.Title,
		Questions: f.Questions,
		CreatedAt: f.CreatedAt,
	}
}

type Question struct {
	Text    string   `json:"text" bson:"text"`
	Type    string   `json:"type" bson:"type"`
	Options []Option `json:"options" bson:"options"`
}

// HasOption reports whether text matches one of the question's options.
func (q Question) HasOption(text string) bool {
	for _, o := range q.Options {
		if o.Text == text {
			return true
		}
	}
	return false
}

type Option struct {
	Text string `json:"text" bson:"text"`
}

type FormResponse struct {
	ID        string    `json:"_id"`
	FormID    string    `json:"form"`
	Answers   []Answer  `json:"answers"`
	CreatedAt time.Time `json:"createdAt"`
}

type Answer struct {
	Question string `json:"question" bson:"question"`
	Answer   string `json:"answer" bson:"answer"`
}
