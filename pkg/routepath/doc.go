// Package routepath converts controller file paths into URL routes.
//
// A controller file's path below the controllers directory becomes its
// route: the extension is dropped, a trailing index file collapses onto its
// directory, and every segment is slug-cased.
//
//	controllers/index.go            → /
//	controllers/test.go             → /test
//	controllers/SubPath/Test.go     → /sub-path/test
//	controllers/api/v1/users.go     → /api/v1/users
//
// Route patterns use the ":name" notation for path parameters. Router
// backends translate it to their own syntax.
package routepath
