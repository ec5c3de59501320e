// Package web crawls a paginated listing site of missing-person cards.
//
// Listing pages are {base}/ followed by {base}/page/2, {base}/page/3 and so
// on until a page has no cards. Each card is an anchor directly inside an
// h3.simple-grid-grid-post-title heading; its href is the permalink and its
// text is the card title.
package web
