package main

import (
	"fmt"
	"mime"
	"path"
	"strings"

	"scenetrack/internal/config"
	"scenetrack/internal/storage"
	"scenetrack/internal/trigger"
)

// videoFromURL describes the object at rawURL. When the object exists under
// storage.root_dir its MD5 becomes the video id unless id overrides it.
func videoFromURL(cfg *config.Config, rawURL, id string) (trigger.Video, error) {
	ref, err := storage.ParseURL(rawURL)
	if err != nil {
		return trigger.Video{}, err
	}
	store := storage.New(cfg.Storage.RootDir)
	if local, err := store.Path(ref); err == nil {
		if video, err := trigger.VideoFromFile(store, local); err == nil {
			if strings.TrimSpace(id) != "" {
				video.ID = strings.TrimSpace(id)
			}
			return video, nil
		}
	}
	if strings.TrimSpace(id) == "" {
		return trigger.Video{}, fmt.Errorf("%s is not present under %s; pass --id", ref, cfg.Storage.RootDir)
	}
	video := trigger.Video{
		ID:          strings.TrimSpace(id),
		Name:        ref.Name,
		ContentType: mime.TypeByExtension(strings.ToLower(path.Ext(ref.Name))),
		Link:        ref.String(),
	}
	return video, video.Validate()
}
