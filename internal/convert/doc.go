// Package convert rewrites collection files from one format to another.
//
// # Manager
//
// The Manager runs a batch of jobs concurrently, each one loading a source
// file into its own container and saving it under the target name. The
// target extension picks the format; ".xml" sources and targets go through
// the XML import and export.
//
// # Basic Usage
//
//	manager := convert.NewManager(settings, func(event convert.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	jobs := []convert.Job{convert.JobFor("movies.mqb", "", ".mqt")}
//	if err := manager.Convert(ctx, jobs); err != nil {
//	    log.Fatal(err)
//	}
//
// The progress callback is invoked from several goroutines at once and must
// be safe for concurrent use.
package convert
