// Package binder fills request structs from form bodies, query strings and
// router path parameters. Each binder only touches fields carrying its own tag
// (form, query, path).
package binder
