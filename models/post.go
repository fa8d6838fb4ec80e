package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Kind selects which group of fields a post must carry.
type Kind string

const (
	KindBlog      Kind = "blog"
	KindChallenge Kind = "challenge"
	KindListing   Kind = "listing"
)

const DefaultAuthor = "admin"

// Valid reports whether k is one of the known post kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindBlog, KindChallenge, KindListing:
		return true
	}
	return false
}

type Post struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Kind   Kind               `bson:"kind" json:"kind"`
	Title  string             `bson:"title" json:"title"`
	Author string             `bson:"author" json:"author"`

	// blog
	Headline string `bson:"headline,omitempty" json:"headline,omitempty"`
	Content  string `bson:"content,omitempty" json:"content,omitempty"`
	ImageURL string `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`

	// challenge
	Deadline           string `bson:"deadline,omitempty" json:"deadline,omitempty"`
	Duration           string `bson:"duration,omitempty" json:"duration,omitempty"`
	Prize              string `bson:"prize,omitempty" json:"prize,omitempty"`
	ProjectDescription string `bson:"projectDescription,omitempty" json:"projectDescription,omitempty"`
	ProjectTasks       string `bson:"projectTasks,omitempty" json:"projectTasks,omitempty"`
	ContactEmail       string `bson:"contactEmail,omitempty" json:"contactEmail,omitempty"`
	ProjectBrief       string `bson:"projectBrief,omitempty" json:"projectBrief,omitempty"`

	// listing
	Skills    []string `bson:"skills,omitempty" json:"skills,omitempty"`
	Seniority string   `bson:"seniority,omitempty" json:"seniority,omitempty"`
	Status    string   `bson:"status,omitempty" json:"status,omitempty"`
	Timeline  string   `bson:"timeline,omitempty" json:"timeline,omitempty"`

	Views   []string  `bson:"views" json:"views"`
	Likes   []string  `bson:"likes" json:"likes"`
	Shares  []string  `bson:"shares" json:"shares"`
	Comment []Comment `bson:"comment" json:"comment"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

type Comment struct {
	Author    string    `bson:"author" json:"author"`
	Content   string    `bson:"content" json:"content"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// PostPatch carries the fields of an update. Nil fields are left untouched.
type PostPatch struct {
	Title    *string `json:"title,omitempty"`
	Author   *string `json:"author,omitempty"`
	Headline *string `json:"headline,omitempty"`
	Content  *string `json:"content,omitempty"`
	ImageURL *string `json:"-"`

	Deadline           *string `json:"deadline,omitempty"`
	Duration           *string `json:"duration,omitempty"`
	Prize              *string `json:"prize,omitempty"`
	ProjectDescription *string `json:"projectDescription,omitempty"`
	ProjectTasks       *string `json:"projectTasks,omitempty"`
	ContactEmail       *string `json:"contactEmail,omitempty"`
	ProjectBrief       *string `json:"projectBrief,omitempty"`

	Skills    *[]string `json:"skills,omitempty"`
	Seniority *string   `json:"seniority,omitempty"`
	Status    *string   `json:"status,omitempty"`
	Timeline  *string   `json:"timeline,omitempty"`
}

// Fields returns the supplied fields keyed by their stored name.
func (p *PostPatch) Fields() map[string]any {
	out := make(map[string]any)
	set := func(name string, v *string) {
		if v != nil {
			out[name] = *v
		}
	}
	set("title", p.Title)
	set("author", p.Author)
	set("headline", p.Headline)
	set("content", p.Content)
	set("imageUrl", p.ImageURL)
	set("deadline", p.Deadline)
	set("duration", p.Duration)
	set("prize", p.Prize)
	set("projectDescription", p.ProjectDescription)
	set("projectTasks", p.ProjectTasks)
	set("contactEmail", p.ContactEmail)
	set("projectBrief", p.ProjectBrief)
	set("seniority", p.Seniority)
	set("status", p.Status)
	set("timeline", p.Timeline)
	if p.Skills != nil {
		out["skills"] = *p.Skills
	}
	return out
}

// Apply merges the supplied fields into post.
func (p *PostPatch) Apply(post *Post) {
	assign := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	assign(&post.Title, p.Title)
	assign(&post.Author, p.Author)
	assign(&post.Headline, p.Headline)
	assign(&post.Content, p.Content)
	assign(&post.ImageURL, p.ImageURL)
	assign(&post.Deadline, p.Deadline)
	assign(&post.Duration, p.Duration)
	assign(&post.Prize, p.Prize)
	assign(&post.ProjectDescription, p.ProjectDescription)
	assign(&post.ProjectTasks, p.ProjectTasks)
	assign(&post.ContactEmail, p.ContactEmail)
	assign(&post.ProjectBrief, p.ProjectBrief)
	assign(&post.Seniority, p.Seniority)
	assign(&post.Status, p.Status)
	assign(&post.Timeline, p.Timeline)
	if p.Skills != nil {
		post.Skills = append([]string(nil), (*p.Skills)...)
	}
}

// Empty reports whether the patch changes nothing.
func (p *PostPatch) Empty() bool {
	return len(p.Fields()) == 0
}
