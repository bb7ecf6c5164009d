// Package commerce contains the canonical record model shared by all
// platform adapters, the port interfaces the sync pipeline is built
// against, and the value objects describing a sync run (windows, results).
//
// Records from every upstream platform are normalized into the shapes in
// this package before persistence. A record is identified by its natural
// key (platform type, store name, native id); adapters never write to the
// store directly.
package commerce
