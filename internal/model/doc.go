// Package model defines the movie record shared by the collection,
// the file codecs and the command-line tools.
//
// # Movie
//
// Movie is a flat catalog entry:
//
//	m := model.NewMovie("The Matrix", 1999, 136, time.Time{}, "Rewatch in 4K.")
//	fmt.Println(m.Title, m.Year, model.FormatDate(m.Acquired))
//
// A zero acquisition date defaults to today. Unknown values use the
// sentinels UnknownYear (1890) and UnknownMinutes (0).
//
// # Identity
//
// Every movie carries a random ID assigned by NewMovie. Collections track
// records by that ID, never by field equality, so two movies with the same
// title and year can coexist.
//
// # Dates
//
// Acquisition dates are calendar dates. They are held as time.Time values
// at midnight UTC and serialised as yyyy-mm-dd:
//
//	d, err := model.ParseDate("2024-03-09")
//	s := model.FormatDate(d) // "2024-03-09"
package model
