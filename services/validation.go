package services

import (
	"errors"
	"reflect"
	"slices"
	"strings"

	"challenges/models"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// imagePending stands in for the URL of an image that is about to be uploaded.
const imagePending = "pending-upload"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type blogRules struct {
	Title    string `json:"title" validate:"notblank"`
	Headline string `json:"headline" validate:"notblank"`
	Content  string `json:"content" validate:"notblank"`
	ImageURL string `json:"image" validate:"notblank"`
}

type challengeRules struct {
	Title              string `json:"title" validate:"notblank"`
	Deadline           string `json:"deadline" validate:"notblank"`
	Duration           string `json:"duration" validate:"notblank"`
	Prize              string `json:"prize" validate:"notblank"`
	ProjectDescription string `json:"projectDescription" validate:"notblank"`
	ProjectTasks       string `json:"projectTasks" validate:"notblank"`
	ContactEmail       string `json:"contactEmail" validate:"notblank,email"`
	ProjectBrief       string `json:"projectBrief" validate:"notblank"`
}

type listingRules struct {
	Title     string   `json:"title" validate:"notblank"`
	Skills    []string `json:"skills" validate:"required,min=1,dive,notblank"`
	Seniority string   `json:"seniority" validate:"notblank"`
	Status    string   `json:"status" validate:"notblank"`
	Timeline  string   `json:"timeline" validate:"notblank"`
}

func rulesFor(post *models.Post) any {
	switch post.Kind {
	case models.KindBlog:
		return &blogRules{
			Title:    post.Title,
			Headline: post.Headline,
			Content:  post.Content,
			ImageURL: post.ImageURL,
		}
	case models.KindChallenge:
		return &challengeRules{
			Title:              post.Title,
			Deadline:           post.Deadline,
			Duration:           post.Duration,
			Prize:              post.Prize,
			ProjectDescription: post.ProjectDescription,
			ProjectTasks:       post.ProjectTasks,
			ContactEmail:       post.ContactEmail,
			ProjectBrief:       post.ProjectBrief,
		}
	default:
		return &listingRules{
			Title:     post.Title,
			Skills:    post.Skills,
			Seniority: post.Seniority,
			Status:    post.Status,
			Timeline:  post.Timeline,
		}
	}
}

// validatePost checks the required fields of post's kind. When only is
// non-nil, problems with fields outside it are ignored.
func validatePost(post *models.Post, only map[string]any) error {
	if !post.Kind.Valid() {
		return &ValidationError{Fields: []string{"kind"}}
	}

	err := validate.Struct(rulesFor(post))
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	var fields []string
	for _, fe := range verrs {
		name, _, _ := strings.Cut(fe.Field(), "[")
		if only != nil {
			if _, ok := only[name]; !ok {
				continue
			}
		}
		if !slices.Contains(fields, name) {
			fields = append(fields, name)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
