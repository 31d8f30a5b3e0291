package main

import (
	"fmt"

	"github.com/dgallion1/modsearch/internal/config"
	"github.com/dgallion1/modsearch/internal/pipeline"
	"github.com/dgallion1/modsearch/internal/platform"
	"github.com/dgallion1/modsearch/internal/store"
	"github.com/spf13/cobra"
)

func newDownloadCmd(a *app) *cobra.Command {
	var appID string
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download every module definition of an application",
		Long: `Authenticate against the platform, save the application's module list,
then download each module definition as JSON into the output directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if appID != "" {
				a.cfg.ApplicationID = appID
			}
			return a.download(cmd)
		},
	}
	cmd.Flags().StringVar(&appID, "app", "", "application ID (default $APPLICATION_ID)")
	return cmd
}

func (a *app) download(cmd *cobra.Command) error {
	if err := a.cfg.ValidateRemote(); err != nil {
		return err
	}
	if err := a.promptCredentials(); err != nil {
		return err
	}

	ctx := cmd.Context()
	client := platform.NewClient(platform.ClientConfig{
		BaseURL:           a.cfg.BaseURL,
		DefinitionBaseURL: a.cfg.DefinitionBaseURL,
		GrantType:         a.cfg.GrantType,
		Username:          a.cfg.Username,
		Password:          a.cfg.Password,
		ClientID:          a.cfg.ClientID,
		ClientSecret:      a.cfg.ClientSecret,
		HTTPProxy:         a.cfg.HTTPProxy,
		HTTPSProxy:        a.cfg.HTTPSProxy,
		Timeout:           a.cfg.RequestTimeout,
	}, a.log)
	defer client.Close()

	if err := client.Authenticate(ctx); err != nil {
		return err
	}
	a.log.Info("retrieved access token")

	modules, err := client.ListModules(ctx, a.cfg.ApplicationID)
	if err != nil {
		return err
	}
	a.log.Info("listed modules", "application_id", a.cfg.ApplicationID, "modules", len(modules))

	st := store.New(a.fs, a.cfg.OutputDir, a.cfg.ModuleListFilename)
	if err := st.WriteModuleList(modules); err != nil {
		return err
	}

	dir := st.DefinitionDir(a.cfg.ApplicationID)
	d := pipeline.NewDownloader(client, st, a.log, a.cfg.DownloadConcurrency)
	summary := d.DownloadAll(ctx, modules, dir)

	fmt.Fprintf(a.out, "Downloaded %d of %d module definitions into %s\n", summary.Downloaded, summary.Total, dir)
	for _, e := range summary.Errors {
		fmt.Fprintf(a.out, "  failed: %s\n", e)
	}
	if summary.Failed > 0 && summary.Downloaded == 0 {
		return fmt.Errorf("all %d downloads failed", summary.Failed)
	}
	return nil
}

// promptCredentials asks for a username and password when the password
// grant is used and they are not configured.
func (a *app) promptCredentials() error {
	if a.cfg.GrantType != config.GrantPassword {
		return nil
	}
	if a.cfg.Username == "" {
		v, err := a.prompt("Username: ", false)
		if err != nil {
			return err
		}
		a.cfg.Username = v
	}
	if a.cfg.Password == "" {
		v, err := a.prompt("Password: ", true)
		if err != nil {
			return err
		}
		a.cfg.Password = v
	}
	return nil
}
