package models

import "gorm.io/gorm"

// Comment represents a comment on a post. ParentID is nil for root-level
// comments; replies reference an earlier comment on the same post.
type Comment struct {
	gorm.Model
	PostID   string `json:"post_id" gorm:"index"` // ID of the post the comment belongs to (MongoDB ObjectID as string)
	UserID   uint   `json:"user_id" gorm:"index"` // ID of the user who made the comment
	ParentID *uint  `json:"parent_id,omitempty" gorm:"index"`
	Content  string `json:"content" validate:"required,min=1,max=500"`
}

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	Content  string `json:"content" validate:"required,min=1,max=500"`
	ParentID *uint  `json:"parent_id,omitempty"`
}

// CommentNode wraps a Comment with its ordered replies. It is derived from
// the flat comment rows on every request and never persisted.
type CommentNode struct {
	Comment
	Children []*CommentNode `json:"children"`
}

// BuildCommentTree converts the flat comments of a single post into a forest.
// Comments whose ParentID is nil, or whose parent is not present in the
// input, become roots; everything else is appended as the last child of its
// parent node. Sibling order follows the input order. Two passes, no
// per-node searching.
func BuildCommentTree(comments []Comment) []*CommentNode {
	nodes := make(map[uint]*CommentNode, len(comments))
	for i := range comments {
		nodes[comments[i].ID] = &CommentNode{Comment: comments[i], Children: []*CommentNode{}}
	}

	roots := make([]*CommentNode, 0, len(comments))
	for i := range comments {
		node := nodes[comments[i].ID]
		if comments[i].ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*comments[i].ParentID]
		if !ok {
			// Orphaned reply (parent was hard-deleted): promote to root.
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}
	return roots
}
