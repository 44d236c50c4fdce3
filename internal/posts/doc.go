// Package posts assembles markdown sources into immutable blog posts and
// exposes them as a date ordered Collection.
package posts
