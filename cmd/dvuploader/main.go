// Command dvuploader uploads a directory tree into a Dataverse dataset.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	dvuploader "github.com/gdcc/dvuploader-go"
	"github.com/gdcc/dvuploader-go/internal/config"
	"github.com/gdcc/dvuploader-go/internal/walkutil"
)

// Environment variables read at startup, mirroring internal/config's
// pattern of env-var-driven defaults with flag overrides.
const (
	envAddress      = "DVUPLOADER_ADDRESS"
	envAPIToken     = "DVUPLOADER_API_TOKEN"
	envPersistentID = "DVUPLOADER_PERSISTENT_ID"
)

func main() {
	var (
		directory    = flag.String("directory", ".", "directory tree to upload")
		rootLabel    = flag.String("root-label", "", "directory label prefix applied to every uploaded file")
		persistentID = flag.String("persistent-id", os.Getenv(envPersistentID), "target dataset persistent identifier")
		address      = flag.String("address", os.Getenv(envAddress), "base URL of the Dataverse repository")
		apiToken     = flag.String("api-token", os.Getenv(envAPIToken), "API token")
		replace      = flag.Bool("replace", false, "replace dataset files whose path already exists")
		forceNative  = flag.Bool("force-native", false, "skip the direct-upload capability probe")
		concurrency  = flag.Int("concurrency", 0, "bounded fan-out width; 0 keeps the configured default")
	)
	flag.Parse()

	if *address == "" || *apiToken == "" || *persistentID == "" {
		fmt.Fprintln(os.Stderr, "address, api-token, and persistent-id are required")
		os.Exit(2)
	}

	ctx := interruptContext()

	descriptors, err := walkutil.Walk(*directory, *rootLabel, walkutil.DefaultIgnore)
	if err != nil {
		log.Fatalf("walking %s: %v", *directory, err)
	}
	if len(descriptors) == 0 {
		fmt.Fprintf(os.Stderr, "no files found under %s\n", *directory)
		return
	}

	var totalBytes int64
	for _, d := range descriptors {
		info, err := os.Stat(d.Filepath)
		if err != nil {
			log.Fatalf("stat %s: %v", d.Filepath, err)
		}
		totalBytes += info.Size()
	}

	uploader, err := dvuploader.New(*address, *apiToken, *persistentID)
	if err != nil {
		log.Fatalf("constructing uploader: %v", err)
	}

	cfg := config.New()
	if *concurrency > 0 {
		cfg.Concurrency = *concurrency
	}

	opts := []dvuploader.Option{dvuploader.WithConfig(cfg)}
	if *replace {
		opts = append(opts, dvuploader.WithReplaceExisting())
	}
	if *forceNative {
		opts = append(opts, dvuploader.WithForceNative())
	}

	tracker := boundedTracker(ctx, totalBytes)
	result, err := uploader.Upload(ctx, descriptors, opts...)
	tracker.Update(&progressUpdate{FilesWritten: int64(len(descriptors)), BytesWritten: totalBytes})
	tracker.Close()

	if err != nil {
		log.Fatalf("upload failed: %v", err)
	}

	for _, key := range result.Skipped {
		fmt.Printf("skipped (already exists): %s\n", key)
	}
	for _, key := range result.Failed() {
		fmt.Fprintf(os.Stderr, "failed: %s: %v\n", key, result.Outcomes[key])
	}
	if len(result.Failed()) > 0 {
		os.Exit(1)
	}
}
