// Package catalog loads the form catalog from files, fs.FS entries, or a
// remote endpoint and keeps it fresh with a cancellable poller.
//
// Remote catalogs are envelopes of the shape
//
//	{ "value": [ { "schema": "<form JSON or list of forms>" } ] }
//
// where each schema string may be wrapped in an extra pair of quotes with its
// inner quotes doubled. Entries that fail to decode are skipped one by one;
// only a document that cannot be read at all fails the fetch.
package catalog
