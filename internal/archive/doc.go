// Package archive keeps a snapshot of a collection in a SQLite database.
//
// Export replaces the stored snapshot with a container's movies in one
// transaction; Import restores them into a container:
//
//	store, err := archive.Open(settings.ArchiveFile())
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	msg, err := store.Export(ctx, c) // "Archived 42 movie records to archive.sqlite"
package archive
