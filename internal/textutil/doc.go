// Package textutil holds text helpers shared across storyreel.
//
// Story fingerprints spot reposted reddit posts. Bodies are cleaned of
// markdown, links, subreddit and user mentions and trailing EDIT/UPDATE
// lines before tokenizing, and common English words and reddit
// boilerplate are not counted, so a repost that only adds a "thanks for
// the gold" edit still matches its original.
package textutil
