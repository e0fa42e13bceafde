// Package rmkey defines the ordered key vocabulary shared by every rmindex
// package: the numeric feature vector used by LinearModel.Predict, and the
// byte-string adapter that lets a variable-length byte key be projected onto
// that same numeric vector.
//
// A Key is a fixed-length vector of L numeric components, compared
// lexicographically component by component (spec §3, Key entity). Model
// nodes and data nodes never see anything but a Key; byte-string callers go
// through a Domain (NewDomain, then Domain.ByteKey), which fixes the key
// domain at construction time.
package rmkey
