package app

import (
	"github.com/mbolis/quick-forms/auth"
	"github.com/mbolis/quick-forms/config"
	"github.com/mbolis/quick-forms/database"
	"github.com/mbolis/quick-forms/service"
)

// App holds the collaborators shared by every route handler.
type App struct {
	*service.Forms
	*service.Accounts
	Tokens *auth.Tokens
	config.Config
}

func New(store database.Store, cfg config.Config) App {
	tokens := auth.NewTokens(cfg.TokenSecret, cfg.TokenTTL)
	return App{
		Forms:    service.NewForms(store, cfg.StrictAnswers),
		Accounts: service.NewAccounts(store, tokens),
		Tokens:   tokens,
		Config:   cfg,
	}
}
