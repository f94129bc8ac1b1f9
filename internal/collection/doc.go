// Package collection provides the in-memory movie catalog.
//
// A Container keeps its movies ordered by a derived sort key (see Key),
// tracks whether it has unsaved changes and saves or loads itself through
// the codec registered for a file's extension:
//
//	c := collection.New()
//	c.Add(model.NewMovie("The Matrix", 1999, 136, time.Time{}, ""))
//	msg, err := c.Save("movies.mqb")
//	if err != nil {
//		// err starts with "failed to save:"
//	}
//	fmt.Println(msg) // Saved 1 movie records to movies.mqb
//
// XML is an interchange format only: ExportXML writes it, and ImportDOM or
// ImportSAX read it back, leaving the container dirty and without a
// filename.
package collection
