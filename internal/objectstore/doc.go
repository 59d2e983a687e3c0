// Package objectstore provides the artifact store backends: a local directory
// tree, an S3 bucket and a NATS JetStream object store bucket.
//
// All three address artifacts the same way, so a sync between any two of them
// preserves ids: local files live at <root>/<kind dir>/<id><ext>, remote
// objects at <kind prefix>/<id><ext>.
package objectstore
