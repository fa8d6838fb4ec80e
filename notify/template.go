package notify

import (
	"bytes"
	"html/template"

	"challenges/models"
)

const newPostSubject = "New Challenge Added"

var newPostTemplate = template.Must(template.New("new_post").Parse(`<div style="font-family: Arial, sans-serif; margin: 0; padding: 10px; background-color: #f4f4f4;">
  <div style="max-width: 600px; margin: 20px auto; padding: 20px; background-color: #fff; border-radius: 10px;">
    <h1 style="color: #333;">New challenge notification</h1>
    {{- if .ImageURL}}
    <img src="{{.ImageURL}}" alt="{{.Title}}" style="width: 100%; max-width: 400px; height: auto; margin-bottom: 20px; border-radius: 5px;">
    {{- end}}
    <h2 style="font-size: 24px; margin-bottom: 10px;">{{.Title}}</h2>
    <p style="color: #666;">Hello there!</p>
    <p style="color: #666;">A new {{.Kind}} post has been added to our website. Check it out now:</p>
    <a href="{{.Link}}" style="display: inline-block; padding: 10px 20px; background-color: #007bff; color: #fff; text-decoration: none; border-radius: 5px;">Read it here</a>
    <p style="color: #666;">If you have any questions or feedback, feel free to reply to this email.</p>
    <p style="color: #666;">Thank you for being a valued subscriber!</p>
  </div>
</div>`))

type newPostView struct {
	Title    string
	Kind     models.Kind
	ImageURL string
	Link     string
}

func renderNewPost(post *models.Post, siteURL string) (string, error) {
	var buf bytes.Buffer
	err := newPostTemplate.Execute(&buf, newPostView{
		Title:    post.Title,
		Kind:     post.Kind,
		ImageURL: post.ImageURL,
		Link:     siteURL + "/openedblog?id=" + post.ID.Hex(),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
