package service

import "marginalia/internal/model"

// CommentNode is one comment plus its ordered replies.
type CommentNode struct {
	Comment model.Comment
	Replies []*CommentNode
}

// BuildThread reconstructs reply trees from a flat, chronologically ordered
// comment list. Single pass with an id index: a comment whose parent is
// already in the index becomes that parent's child, everything else becomes a
// root. A dangling parent reference (parent deleted, unapproved, or simply
// missing) degrades the comment to a root rather than dropping it, so every
// input comment appears exactly once in the result. Sibling and root order
// follows input order.
//
// The parent lookup happens at processing time, so a reply can only attach to
// a parent that appeared earlier in the input. Callers must supply the list
// in ascending creation order; the store emits parents before their replies
// because a reply is always created after its parent.
func BuildThread(comments []model.Comment) []*CommentNode {
	nodes := make(map[string]*CommentNode, len(comments))
	roots := make([]*CommentNode, 0, len(comments))

	for i := range comments {
		node := &CommentNode{Comment: comments[i]}

		attached := false
		if comments[i].ParentID != nil {
			// Only comments seen earlier can be parents, which rules out
			// self-references and cycles.
			if parent, ok := nodes[*comments[i].ParentID]; ok {
				parent.Replies = append(parent.Replies, node)
				attached = true
			}
		}
		if !attached {
			roots = append(roots, node)
		}

		nodes[comments[i].ID] = node
	}

	return roots
}

// CountNodes counts all comments in a forest, replies included.
func CountNodes(roots []*CommentNode) int {
	n := 0
	for _, root := range roots {
		n += 1 + CountNodes(root.Replies)
	}
	return n
}
