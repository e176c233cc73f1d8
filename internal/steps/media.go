package steps

import (
	"context"

	"github.com/fpp-125/djstarter/internal/patch"
	"github.com/fpp-125/djstarter/internal/pipeline"
)

var (
	mediaSettings = []string{
		"# Media files configuration",
		"MEDIA_URL = '/media/'",
		"MEDIA_ROOT = os.path.join(BASE_DIR, 'media')",
	}
	mediaServing = []string{
		"if settings.DEBUG:",
		"    urlpatterns += static(settings.MEDIA_URL, document_root=settings.MEDIA_ROOT)",
	}
)

// MediaFiles configures uploaded-file storage and development serving.
// Each edit is applied at most once.
type MediaFiles struct {
	Deps
}

func (*MediaFiles) Name() string { return NameMedia }

func (s *MediaFiles) Execute(_ context.Context, bc *pipeline.Context) error {
	p, err := s.project(bc)
	if err != nil {
		return err
	}
	if _, err := s.writeIfAbsent(p.path("media", ".gitkeep"), nil); err != nil {
		return err
	}

	settings, err := patch.Load(s.FS, p.settings())
	if err != nil {
		return err
	}
	changed := settings.EnsureImport("os", "")
	if !settings.Contains("MEDIA_URL") && !settings.Contains("MEDIA_ROOT") {
		changed = settings.AppendOnce("MEDIA_ROOT", mediaSettings) || changed
	}
	if changed {
		if err := patch.Save(s.FS, p.settings(), settings); err != nil {
			return err
		}
	}

	urls, err := patch.Load(s.FS, p.urls())
	if err != nil {
		return err
	}
	if !urls.Contains("static(settings.MEDIA_URL") {
		urls.EnsureImport("django.conf", "settings")
		urls.EnsureImport("django.conf.urls.static", "static")
		urls.AppendOnce("static(settings.MEDIA_URL", mediaServing)
		if err := patch.Save(s.FS, p.urls(), urls); err != nil {
			return err
		}
	}
	s.out().OKf("media files configured")
	return nil
}
