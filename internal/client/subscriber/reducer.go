package subscriber

import (
	"slices"

	"github.com/dmitrijs2005/sketchhub/internal/client/models"
)

// State is the client's cached view of the three broadcast lists.
type State struct {
	Models     []models.Model
	Categories []models.Category
	Users      []models.User
}

// Apply returns the state after ev. The input is never modified. Events
// for ids the state does not hold are ignored.
func Apply(s State, ev Event) State {
	switch e := ev.(type) {
	case ModelCreated:
		s.Models = prepend(s.Models, e.Model)
	case ModelDeleted:
		s.Models = remove(s.Models, e.ID)
	case FavoriteCountChanged:
		s.Models = patchCount(s.Models, e)
	case CategoryChanged:
		s.Categories = reduce(s.Categories, e.Action, e.Category, true)
	case UserChanged:
		s.Users = reduce(s.Users, e.Action, e.User, false)
	}
	return s
}

func reduce[T models.Record](list []T, action Action, item T, unique bool) []T {
	switch action {
	case Created:
		if unique && indexOf(list, item.GetID()) >= 0 {
			return list
		}
		return prepend(list, item)
	case Updated:
		return replace(list, item)
	case Deleted:
		return remove(list, item.GetID())
	}
	return list
}

func patchCount(list []models.Model, e FavoriteCountChanged) []models.Model {
	i := indexOf(list, e.ModelID)
	if i < 0 {
		return list
	}
	out := slices.Clone(list)
	if e.Count != nil {
		out[i].FavoriteCount = *e.Count
	} else {
		out[i].FavoriteCount++
	}
	return out
}

func indexOf[T models.Record](list []T, id int64) int {
	return slices.IndexFunc(list, func(v T) bool { return v.GetID() == id })
}

func prepend[T any](list []T, item T) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, item)
	return append(out, list...)
}

func replace[T models.Record](list []T, item T) []T {
	i := indexOf(list, item.GetID())
	if i < 0 {
		return list
	}
	out := slices.Clone(list)
	out[i] = item
	return out
}

func remove[T models.Record](list []T, id int64) []T {
	if indexOf(list, id) < 0 {
		return list
	}
	return slices.DeleteFunc(slices.Clone(list), func(v T) bool { return v.GetID() == id })
}
