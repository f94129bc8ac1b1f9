// Package codec implements the on-disk representations of a movie collection.
//
// Every format implements the same Codec contract: Encode writes movies in the
// order given, Decode reads them back. Codecs are stateless and safe to share.
//
// # Formats
//
//	.mqb  Binary     big-endian data stream with magic number and version header
//	.mpb  Dump       gzip-compressed msgpack document
//	.mqt  Text       line grammar ({MOVIE} / {NOTES} / {ENDMOVIE})
//	.mpt  Text       same grammar, second suffix
//	.xml  XML        export, with tree (DOM) import
//	.xml  XMLStream  same document, forward-only token import
//
// The Registry selects a codec from a file name:
//
//	reg := codec.DefaultRegistry()
//	c, err := reg.Lookup("movies.mqt")
//	if errors.Is(err, codec.ErrInvalidExtension) {
//	    // unsupported suffix
//	}
//
// # Errors
//
// Header problems are reported with the sentinels ErrUnrecognizedFormat,
// ErrOldVersion and ErrNewVersion. Structural problems are reported as
// *FormatError carrying the line number (line formats) or the field name
// (attribute formats).
package codec
