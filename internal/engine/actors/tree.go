package actors

import (
	"sort"

	"challenge-hub/internal/models"
)

// BuildCommentTree converts a flat, unordered comment list into a forest of
// root nodes with nested children. A comment whose parent is absent from the
// input (e.g. page 2 arrived without its ancestor) is kept as a root rather
// than dropped. Two passes over the input, no nested scanning.
//
// Roots are ordered newest-first, children oldest-first. Node comments are
// value copies, so the returned forest never aliases live actor state.
func BuildCommentTree(flat []*models.Comment) []*models.CommentNode {
	nodes := make(map[string]*models.CommentNode, len(flat))
	for _, c := range flat {
		if c == nil || c.ID == "" {
			continue
		}
		if _, exists := nodes[c.ID]; exists {
			// Duplicate IDs should have been merged upstream; keep the first.
			continue
		}
		nodes[c.ID] = &models.CommentNode{
			Comment:  *c,
			Children: make([]*models.CommentNode, 0),
		}
	}

	roots := make([]*models.CommentNode, 0, len(nodes))
	for id, node := range nodes {
		if parent, ok := nodes[node.ParentID]; ok && node.ParentID != id {
			parent.Children = append(parent.Children, node)
		} else {
			roots = append(roots, node)
		}
	}

	sortForest(roots)
	return roots
}

func sortForest(roots []*models.CommentNode) {
	sort.SliceStable(roots, func(i, j int) bool {
		a, b := roots[i], roots[j]
		// Unconfirmed comments stay on top so a fast reconcile never pushes
		// a just-posted comment below fetched history.
		if a.IsOptimistic != b.IsOptimistic {
			return a.IsOptimistic
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	for _, root := range roots {
		sortChildren(root)
	}
}

func sortChildren(node *models.CommentNode) {
	sort.SliceStable(node.Children, func(i, j int) bool {
		a, b := node.Children[i], node.Children[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	node.ReplyCount = len(node.Children)
	for _, child := range node.Children {
		sortChildren(child)
	}
}

// FlattenDeepReplies caps the rendered nesting depth: replies below maxDepth
// are folded into the child list of their ancestor at maxDepth, ordered by
// creation time. The underlying data model still supports arbitrary depth;
// this only reshapes the rendered forest. maxDepth < 1 returns roots as-is.
func FlattenDeepReplies(roots []*models.CommentNode, maxDepth int) []*models.CommentNode {
	if maxDepth < 1 {
		return roots
	}
	for _, root := range roots {
		flattenAt(root, 1, maxDepth)
	}
	return roots
}

func flattenAt(node *models.CommentNode, depth, maxDepth int) {
	if depth == maxDepth {
		collected := make([]*models.CommentNode, 0)
		for _, child := range node.Children {
			collected = append(collected, collectSubtreeNodes(child)...)
		}
		sort.SliceStable(collected, func(i, j int) bool {
			a, b := collected[i], collected[j]
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		})
		node.Children = collected
		node.ReplyCount = len(collected)
		return
	}
	for _, child := range node.Children {
		flattenAt(child, depth+1, maxDepth)
	}
}

func collectSubtreeNodes(node *models.CommentNode) []*models.CommentNode {
	out := []*models.CommentNode{node}
	for _, child := range node.Children {
		out = append(out, collectSubtreeNodes(child)...)
	}
	node.Children = make([]*models.CommentNode, 0)
	node.ReplyCount = 0
	return out
}
