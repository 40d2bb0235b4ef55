package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/dmitrijs2005/sketchhub/internal/client/client"
	"github.com/dmitrijs2005/sketchhub/internal/client/models"
	"github.com/dmitrijs2005/sketchhub/internal/common"
)

// idArg takes the model id from the first argument or asks for it.
func (a *App) idArg(args []string) (int64, error) {
	if len(args) > 0 {
		return ParseID(args[0])
	}
	raw, err := getSimpleText(a.reader, "Enter model id", a.out)
	if err != nil {
		return 0, err
	}
	return ParseID(raw)
}

func (a *App) modelLine(m models.Model) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%-5d %-32s ♥ %d", m.ID, m.Title, m.FavoriteCount)
	if a.catalog.IsLiked(m.ID) {
		b.WriteString(" (liked)")
	}
	if m.Author != nil {
		fmt.Fprintf(&b, "  by @%s", m.Author.Username)
	}
	if m.Category != nil {
		fmt.Fprintf(&b, "  [%s]", m.Category.Title)
	}
	return b.String()
}

func (a *App) printModels(list []models.Model) {
	if len(list) == 0 {
		printlnFn("No models")
		return
	}
	for _, m := range list {
		printlnFn(a.modelLine(m))
	}
}

// List prints the live catalog. Online it is refreshed first; offline the
// cached snapshot is shown.
func (a *App) List(ctx context.Context) error {
	if a.mode() == ModeOnline {
		if err := a.catalog.Refresh(ctx, a.isAdmin()); err != nil {
			if !errors.Is(err, client.ErrUnavailable) {
				log.Printf("error: %v", err)
				return err
			}
			a.setMode(ModeOffline)
		}
	}
	if a.mode() != ModeOnline {
		printlnFn("(offline, showing cached catalog)")
	}
	a.printModels(a.catalog.State().Models)
	return nil
}

func (a *App) Popular(ctx context.Context) error {
	list, err := a.modelService.Popular(ctx)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	a.printModels(list)
	return nil
}

func (a *App) Search(ctx context.Context, args []string) error {
	q := strings.Join(args, " ")
	if q == "" {
		var err error
		if q, err = getSimpleText(a.reader, "Search for", a.out); err != nil {
			return err
		}
	}
	list, err := a.modelService.Search(ctx, q)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	a.printModels(list)
	return nil
}

func (a *App) Show(ctx context.Context, args []string) error {
	id, err := a.idArg(args)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	m, err := a.modelService.Show(ctx, id)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	printlnFn(a.modelLine(*m))
	if m.Description != nil && *m.Description != "" {
		printlnFn(*m.Description)
	}
	printlnFn("Archive:", m.FileURL)
	for _, asset := range []struct {
		name string
		url  *string
	}{
		{"Preview", m.PreviewImageURL},
		{"Environment map", m.EnvMapURL},
		{"GLB", m.ModelGLBURL},
	} {
		if asset.url != nil {
			printlnFn(asset.name+":", *asset.url)
		}
	}
	printlnFn("Published:", m.CreatedAt.Local().Format("2006-01-02 15:04"))
	return nil
}

// Like favorites a model. The counter moves right away and is rolled back
// if the server refuses.
func (a *App) Like(ctx context.Context, args []string) error {
	return a.toggle(ctx, args, true)
}

func (a *App) Unlike(ctx context.Context, args []string) error {
	return a.toggle(ctx, args, false)
}

func (a *App) toggle(ctx context.Context, args []string, like bool) error {
	id, err := a.idArg(args)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	if like {
		err = a.catalog.Like(ctx, id)
	} else {
		err = a.catalog.Unlike(ctx, id)
	}

	switch {
	case err == nil:
		printlnFn(a.countLine(id))
	case errors.Is(err, common.ErrorAlreadyFavorited):
		printlnFn("You already like this model")
	case errors.Is(err, common.ErrorNotFavorited):
		printlnFn("You have not liked this model")
	default:
		log.Printf("error: %v", err)
	}
	return err
}

func (a *App) countLine(id int64) string {
	for _, m := range a.catalog.State().Models {
		if m.ID == id {
			return a.modelLine(m)
		}
	}
	return fmt.Sprintf("#%d updated", id)
}

func (a *App) Favorites(ctx context.Context) error {
	favs, err := a.modelService.Favorites(ctx)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	if len(favs) == 0 {
		printlnFn("No favorites yet")
		return nil
	}
	for _, f := range favs {
		if f.Model != nil {
			printlnFn(a.modelLine(*f.Model))
		} else {
			printlnFn(fmt.Sprintf("#%d", f.ModelID))
		}
	}
	return nil
}

func (a *App) Categories(ctx context.Context) error {
	cats := a.catalog.State().Categories
	if len(cats) == 0 {
		printlnFn("No categories")
		return nil
	}
	for _, c := range cats {
		printlnFn(fmt.Sprintf("#%-4d %-24s %s", c.ID, c.Title, c.Code))
	}
	return nil
}

// Users lists registered users. The list is only broadcast to, and
// fetched for, admins.
func (a *App) Users(ctx context.Context) error {
	if !a.isAdmin() {
		printlnFn("Only admins can list users")
		return common.ErrorForbidden
	}
	users := a.catalog.State().Users
	if len(users) == 0 {
		printlnFn("No users")
		return nil
	}
	for _, u := range users {
		printlnFn(fmt.Sprintf("#%-4d @%-20s %-24s %s", u.ID, u.Username, u.Name, u.Email))
	}
	return nil
}

// Watch toggles printing of live broadcast events.
func (a *App) Watch(ctx context.Context) error {
	on := !a.watching.Load()
	a.watching.Store(on)
	if on {
		printlnFn("Watching live updates (type 'watch' again to stop)")
	} else {
		printlnFn("Stopped watching")
	}
	return nil
}
