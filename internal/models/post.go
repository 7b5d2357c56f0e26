package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post represents a blog post stored in MongoDB
type Post struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	AuthorID      uint               `json:"author_id" bson:"author_id"` // ID of the user who wrote the post
	Title         string             `json:"title" bson:"title"`
	Content       string             `json:"content" bson:"content"`
	CoverImageURL string             `json:"cover_image_url,omitempty" bson:"cover_image_url,omitempty"`
	LikesCount    int                `json:"likes_count" bson:"likes_count"`
	CommentsCount int                `json:"comments_count" bson:"comments_count"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Title         string `json:"title" validate:"required,min=1,max=200"`
	Content       string `json:"content" validate:"required,min=1"`
	CoverImageURL string `json:"cover_image_url,omitempty" validate:"omitempty,url"`
}

// UpdatePostRequest defines the request body for updating an existing post
type UpdatePostRequest struct {
	Title         string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Content       string `json:"content,omitempty" validate:"omitempty,min=1"`
	CoverImageURL string `json:"cover_image_url,omitempty" validate:"omitempty,url"`
}
