// Package agreement holds the tri-party internship agreement created when a
// company accepts an application.
//
// The student, the company and the administration each sign once, in any
// order. Status is never assigned directly: it is recomputed from the three
// signature flags by DeriveStatus after every signature.
//
//	flags set   status
//	0           DRAFT
//	1 or 2      PENDING_SIGNATURES
//	3           SIGNED
//
// ARCHIVED is reached only through Archive from SIGNED and is terminal.
//
// When an agreement first becomes SIGNED the application layer asks the
// DocumentRenderer for the printable agreement and stores the returned
// reference. Rendering may fail; the signature stands regardless and the
// document is produced later through GenerateDocument.
package agreement
