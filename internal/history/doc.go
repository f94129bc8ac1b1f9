// Package history remembers which collection files were used recently.
//
//	store, err := history.Open(settings.HistoryFile(), settings.MaxRecentFiles)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	store.Touch("movies.mqb", "binary", 42, time.Now())
//	entries, _ := store.Recent() // newest first
package history
