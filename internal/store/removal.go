package store

import (
	"fmt"

	"github.com/inamate/annotate/internal/annotation"
)

// removal is the full effect of deleting a set of features.
type removal struct {
	ids      map[string]bool
	order    []string
	unlinked []*annotation.Feature
}

// planRemoval is the single place that decides what a delete takes with
// it. Removing a Text or Comment removes every arrow attached to it. A
// Comment left without arrows by cascaded removals goes too, but a direct
// request that would strip a Comment of its last arrow is refused.
// Arrows attached to other removed targets are unlinked.
func planRemoval(st State, requested []string) (removal, error) {
	attached := attachedArrows(st)

	set := make(map[string]bool)
	direct := make(map[string]bool)
	var queue []string
	push := func(id string) {
		if set[id] {
			return
		}
		if _, ok := st.Get(id); ok {
			set[id] = true
			queue = append(queue, id)
		}
	}
	for _, id := range requested {
		direct[id] = true
		push(id)
	}

	for {
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			f, _ := st.Get(id)
			if f.Kind.CascadesArrows() {
				for _, arrowID := range attached[id] {
					push(arrowID)
				}
			}
		}

		orphaned := false
		for _, f := range st.Features() {
			if f.Kind != annotation.KindComment || set[f.ID] || len(attached[f.ID]) == 0 {
				continue
			}
			allGone, allDirect := true, true
			for _, arrowID := range attached[f.ID] {
				allGone = allGone && set[arrowID]
				allDirect = allDirect && direct[arrowID]
			}
			if !allGone {
				continue
			}
			if allDirect {
				return removal{}, fmt.Errorf("remove arrows of comment %s: %w", f.ID, ErrLastCommentArrow)
			}
			push(f.ID)
			orphaned = true
		}
		if !orphaned {
			break
		}
	}

	plan := removal{ids: set}
	for _, f := range st.Features() {
		if set[f.ID] {
			plan.order = append(plan.order, f.ID)
			continue
		}
		if f.Kind != annotation.KindArrow {
			continue
		}
		next := f
		for _, l := range f.Properties.Links {
			if set[l.TargetID] {
				next = next.WithoutLinksTo(l.TargetID)
			}
		}
		if next != f {
			plan.unlinked = append(plan.unlinked, next)
		}
	}
	return plan, nil
}

// attachedArrows maps each annotation target id to the arrows linked to it.
func attachedArrows(st State) map[string][]string {
	attached := make(map[string][]string)
	for _, f := range st.Features() {
		if f.Kind != annotation.KindArrow {
			continue
		}
		seen := map[string]bool{}
		for _, l := range f.Properties.Links {
			if l.TargetType.IsAnnotation() && !seen[l.TargetID] {
				seen[l.TargetID] = true
				attached[l.TargetID] = append(attached[l.TargetID], f.ID)
			}
		}
	}
	return attached
}

// validateLinks refuses a transition that leaves a Comment, still present
// in next, without any of the arrows it had in prev.
func validateLinks(prev, next State) error {
	before := attachedArrows(prev)
	var after map[string][]string
	for id, arrows := range before {
		if len(arrows) == 0 {
			continue
		}
		f, ok := next.Get(id)
		if !ok || f.Kind != annotation.KindComment {
			continue
		}
		if after == nil {
			after = attachedArrows(next)
		}
		if len(after[id]) == 0 {
			return fmt.Errorf("unlink arrows of comment %s: %w", id, ErrLastCommentArrow)
		}
	}
	return nil
}
