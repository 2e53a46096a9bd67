package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"subflow/internal/language"
	"subflow/internal/services"
)

// Layout names the languages a job carries artifacts for.
type Layout struct {
	Source         language.Code
	Targets        []language.Code
	RenderOriginal bool
}

// Job holds the deterministic artifact paths for one input video. Every path
// lives under OutputDir, which no other job shares.
type Job struct {
	VideoPath       string
	VideoName       string
	OutputDir       string
	AudioPath       string
	OriginalSRTPath string
	SubtitlePaths   map[language.Code]string
	OutputPaths     map[language.Code]string
}

// VideoName returns the file name of path without its extension.
func VideoName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ArtifactName builds "<code>_<video>.<ext>", or "<video>.<ext>" when code is
// empty.
func ArtifactName(code language.Code, videoName, ext string) string {
	if code == "" {
		return videoName + "." + ext
	}
	return fmt.Sprintf("%s_%s.%s", code, videoName, ext)
}

// NewJob derives the artifact layout for videoPath under outputRoot.
func NewJob(videoPath, outputRoot string, layout Layout) (Job, error) {
	videoPath = strings.TrimSpace(videoPath)
	if videoPath == "" {
		return Job{}, services.Wrap(services.ErrConfiguration, "job", "layout", "video path required", nil)
	}
	if strings.TrimSpace(outputRoot) == "" {
		return Job{}, services.Wrap(services.ErrConfiguration, "job", "layout", "output directory required", nil)
	}
	if layout.Source == "" {
		return Job{}, services.Wrap(services.ErrConfiguration, "job", "layout", "source language required", nil)
	}
	name := VideoName(videoPath)
	if strings.TrimSpace(name) == "" {
		return Job{}, services.Wrap(services.ErrIO, "job", "layout", fmt.Sprintf("cannot derive video name from %q", videoPath), nil)
	}

	dir := filepath.Join(outputRoot, name)
	job := Job{
		VideoPath:     videoPath,
		VideoName:     name,
		OutputDir:     dir,
		AudioPath:     filepath.Join(dir, ArtifactName("", name, "wav")),
		SubtitlePaths: make(map[language.Code]string, len(layout.Targets)+1),
		OutputPaths:   make(map[language.Code]string, len(layout.Targets)+1),
	}
	job.OriginalSRTPath = filepath.Join(dir, ArtifactName(layout.Source, name, "srt"))
	job.SubtitlePaths[layout.Source] = job.OriginalSRTPath
	if layout.RenderOriginal {
		job.OutputPaths[layout.Source] = filepath.Join(dir, ArtifactName(layout.Source, name, "mp4"))
	}
	for _, code := range layout.Targets {
		if code == layout.Source {
			return Job{}, services.Wrap(services.ErrConfiguration, "job", "layout", fmt.Sprintf("target %q equals source language", code), nil)
		}
		job.SubtitlePaths[code] = filepath.Join(dir, ArtifactName(code, name, "srt"))
		job.OutputPaths[code] = filepath.Join(dir, ArtifactName(code, name, "mp4"))
	}
	return job, nil
}
