// Package stories acquires narrative text from subreddit listings.
//
// Three sources read a listing: the reddit .json endpoint, the subreddit RSS
// feed (parsed with gofeed), and the go-reddit read-only API client. Link posts carry no text of their own; when
// link extraction is enabled the linked page is reduced to readable text
// with go-readability, otherwise the story body is "Link post: <url>".
// Fetched posts are saved to the story library as <i>_<date>.json, skipping
// posts whose URL or text is already in the library.
package stories
