package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/dmitrijs2005/sketchhub/internal/client/services"
)

// Create collects a new model and its asset paths, publishes it and
// uploads the files.
func (a *App) Create(ctx context.Context) error {
	var in services.NewModel
	var err error

	if in.Title, err = getSimpleText(a.reader, "Enter title", a.out); err != nil {
		return err
	}
	if in.Description, err = getMultiline(a.reader, "Enter description", a.out); err != nil {
		return err
	}

	rawCategory, err := getSimpleText(a.reader, "Enter category id (empty for none)", a.out)
	if err != nil {
		return err
	}
	if rawCategory != "" {
		id, err := ParseID(rawCategory)
		if err != nil {
			log.Printf("error: %v", err)
			return err
		}
		in.CategoryID = &id
	}

	in.Assets = map[string]string{}
	for _, asset := range []struct {
		kind, prompt string
	}{
		{services.AssetFile, "Path to the model archive"},
		{services.AssetPreview, "Path to the preview image (empty to skip)"},
		{services.AssetEnvMap, "Path to the environment map (empty to skip)"},
		{services.AssetModelGLB, "Path to the GLB model (empty to skip)"},
	} {
		path, err := getSimpleText(a.reader, asset.prompt, a.out)
		if err != nil {
			return err
		}
		if path != "" {
			in.Assets[asset.kind] = path
		}
	}

	m, err := a.modelService.Publish(ctx, in)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	printlnFn(fmt.Sprintf("Published #%d %q", m.ID, m.Title))
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	id, err := a.idArg(args)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	if err := a.modelService.Delete(ctx, id); err != nil {
		log.Printf("error: %v", err)
		return err
	}
	printlnFn(fmt.Sprintf("Deleted #%d", id))
	return nil
}

const commentsShown = 20

func (a *App) Comments(ctx context.Context, args []string) error {
	id, err := a.idArg(args)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	list, err := a.modelService.Comments(ctx, id, commentsShown)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	if len(list) == 0 {
		printlnFn("No comments")
		return nil
	}
	for _, c := range list {
		who := "someone"
		if c.User != nil {
			who = "@" + c.User.Username
		}
		printlnFn(fmt.Sprintf("%s %s: %s", c.CreatedAt.Local().Format("2006-01-02 15:04"), who, c.Comment))
	}
	return nil
}

func (a *App) Comment(ctx context.Context, args []string) error {
	id, err := a.idArg(args)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	text, err := getMultiline(a.reader, "Enter comment", a.out)
	if err != nil {
		return err
	}
	c, err := a.modelService.Comment(ctx, id, text)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	printlnFn(fmt.Sprintf("Comment #%d added", c.ID))
	return nil
}
