package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/validtech/valid_backend/config"
	"github.com/validtech/valid_backend/models"
	"github.com/validtech/valid_backend/utils"
	"gopkg.in/yaml.v3"
)

const sponsorLogoWidth = 400

type sponsorEntry struct {
	models.NewSponsor `yaml:",inline"`
	// LogoFile is a local image, relative to the YAML file, uploaded as the logo.
	LogoFile string `yaml:"logo_file"`
}

type sponsorFile struct {
	Sponsors []sponsorEntry `yaml:"sponsors"`
}

// logoUploader stores a PNG and returns its public URL.
type logoUploader func(ctx context.Context, object string, png []byte) (string, error)

func gcsLogoUploader(bucket string) logoUploader {
	return func(ctx context.Context, object string, png []byte) (string, error) {
		if err := utils.UploadBytesToGCS(ctx, bucket, object, png, "image/png"); err != nil {
			return "", err
		}
		return utils.PublicObjectURL(bucket, object), nil
	}
}

func parseSponsorFile(data []byte) ([]sponsorEntry, error) {
	var f sponsorFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sponsors: %w", err)
	}
	if len(f.Sponsors) == 0 {
		return nil, errors.New("no sponsors listed")
	}
	return f.Sponsors, nil
}

func slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "-"):
			b.WriteByte('-')
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// prepareSponsors resizes and uploads local logos. upload may be nil when no
// entry names a logo file.
func prepareSponsors(ctx context.Context, entries []sponsorEntry, baseDir string, upload logoUploader) ([]models.NewSponsor, error) {
	out := make([]models.NewSponsor, 0, len(entries))
	for _, e := range entries {
		sponsor := e.NewSponsor
		if e.LogoFile != "" {
			if upload == nil {
				return nil, fmt.Errorf("%s: logo_file needs GCS_BUCKET or DOCUMENT_BUCKET", e.Name)
			}
			path := e.LogoFile
			if !filepath.IsAbs(path) {
				path = filepath.Join(baseDir, path)
			}
			raw, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", e.Name, err)
			}
			png, err := utils.ResizeLogo(raw, sponsorLogoWidth)
			if err != nil {
				return nil, fmt.Errorf("%s: resize logo: %w", e.Name, err)
			}
			url, err := upload(ctx, "sponsors/"+slug(e.Name)+".png", png)
			if err != nil {
				return nil, fmt.Errorf("%s: upload logo: %w", e.Name, err)
			}
			sponsor.LogoUrl = url
		}
		out = append(out, sponsor)
	}
	return out, nil
}

func newSeedSponsorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-sponsors <file.yaml>",
		Short: "Upsert sponsors by name from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			entries, err := parseSponsorFile(data)
			if err != nil {
				return err
			}

			var upload logoUploader
			if bucket := utils.AssetBucket(); bucket != "" {
				upload = gcsLogoUploader(bucket)
			}
			ctx := operatorContext()
			sponsors, err := prepareSponsors(ctx, entries, filepath.Dir(args[0]), upload)
			if err != nil {
				return err
			}

			config.ConnectDatabaseWithRetry()
			// the cached list is dropped when Redis is reachable
			config.ConnectRedisWithRetry()
			n, err := models.UpsertSponsors(ctx, sponsors)
			if err != nil {
				return fmt.Errorf("upsert sponsors: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d sponsors upserted\n", n)
			return nil
		},
	}
}
