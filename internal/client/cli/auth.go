package cli

import (
	"context"
	"errors"
	"log"

	"github.com/dmitrijs2005/sketchhub/internal/client/client"
	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/dmitrijs2005/sketchhub/internal/dto"
)

// getSimpleText, getPassword and getPasswordConfirmation are indirections
// used to facilitate testing. They point to interactive input helpers and
// can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword
var getPasswordConfirmation = GetPasswordConfirmation
var getMultiline = GetMultiline

// Register prompts for the profile fields and a confirmed password and
// creates the account. It does not log in.
func (a *App) Register(ctx context.Context) error {
	var req dto.RegisterRequest
	var err error

	for _, f := range []struct {
		prompt string
		dst    *string
	}{
		{"Enter name", &req.Name},
		{"Enter username", &req.Username},
		{"Enter email", &req.Email},
	} {
		if *f.dst, err = getSimpleText(a.reader, f.prompt, a.out); err != nil {
			return err
		}
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirmation, err := getPasswordConfirmation(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirmation)

	req.Password = string(password)
	req.PasswordConfirmation = string(confirmation)

	if err := a.authService.Register(ctx, req); err != nil {
		log.Printf("Registration unsuccessful: %s", err.Error())
		return err
	}

	printlnFn("Success! You can log in now.")
	return nil
}

// Login prompts the user for credentials and tries to authenticate.
//
// If the server is unavailable (errors.Is(err, client.ErrUnavailable)) the
// cached session and catalog snapshot are used instead and the app runs in
// offline mode:
//   - ModeOnline if online login succeeds,
//   - ModeOffline if a cached session exists,
//   - ModeDisabled if neither works.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	s, err := a.authService.Login(ctx, email, password)
	if err == nil {
		log.Printf("Login successful")
		a.setUser(&s.User)
		a.setMode(ModeOnline)
		if err := a.resync(ctx); err != nil {
			log.Printf("error loading catalog: %v", err)
		}
		return nil
	}

	if !errors.Is(err, client.ErrUnavailable) {
		log.Printf("Login unsuccessful: %s", err.Error())
		return err
	}

	log.Printf("Server unavailable, trying cached session...")
	if err := a.restoreOffline(ctx); err != nil {
		log.Printf("Offline login unsuccessful: %s", err.Error())
		a.setMode(ModeDisabled)
		return err
	}
	return nil
}

// restoreOffline reuses the cached session and snapshot.
func (a *App) restoreOffline(ctx context.Context) error {
	s, err := a.authService.Restore(ctx)
	if err != nil {
		return err
	}
	a.setUser(&s.User)

	savedAt, err := a.catalog.LoadOffline(ctx)
	switch {
	case errors.Is(err, client.ErrLocalDataNotAvailable):
		log.Printf("No cached catalog yet")
	case err != nil:
		return err
	default:
		log.Printf("Using catalog snapshot from %s", savedAt.Local().Format("2006-01-02 15:04"))
	}
	a.setMode(ModeOffline)
	return nil
}

// Logout ends the session on the server (when reachable) and wipes the
// cached one.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		log.Printf("Logout error: %v", err)
		return err
	}
	a.setUser(nil)
	a.catalog.ForgetLikes()
	printlnFn("Logged out")
	return nil
}
