// Package upload stores files that arrive with controller requests.
//
// When a request carries a multipart body, the request adapter collects its
// files with FromMultipart and passes them to the action under the "files"
// parameter. If a Store is configured, the files are first saved with
// Persist so actions receive stable IDs instead of request-scoped parts:
//
//	store, err := upload.NewDiskStore("/var/tmp/uploads", 10<<20)
//	if err != nil {
//	    return err
//	}
//	ar := autoroute.New(routers.NewChi, nil, autoroute.WithUploadStore(store))
//
// Actions later retrieve a saved file with Claim. A claimed file is removed
// from the store when it is closed:
//
//	f, err := store.Claim(ctx, id)
//	if err != nil {
//	    return nil, err
//	}
//	defer f.Close()
//
// Two stores are provided: DiskStore for the local filesystem and S3Store
// for S3 compatible object storage. Call Cleanup periodically to remove
// files that were never claimed.
package upload
