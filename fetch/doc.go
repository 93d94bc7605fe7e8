// Package fetch is a small JSON request helper over a pluggable Fetcher.
//
// It offers three operations:
//
//   - Get: read with redirects disabled, Accept: application/json by default,
//     "data" unwrapping and lifecycle hooks
//   - Post: write (POST, PUT, PATCH, DELETE) as JSON or multipart/form-data
//   - RawFetch: passthrough returning the unparsed *http.Response
//
// Get and Post return an *Envelope on success and an *Error on any failure,
// so both server errors and transport failures go through the error return.
// An *Error carries StatusCode 0 when no response was obtained.
//
// # Basic Usage
//
//	c, err := fetch.New(fetch.Config{BaseURL: "https://api.example.com"})
//	if err != nil {
//	    return err
//	}
//
//	env, err := fetch.Get[[]User](ctx, c, fetch.Request{URL: "/users"})
//	if err != nil {
//	    var fe *fetch.Error
//	    if errors.As(err, &fe) && fe.StatusCode == 0 {
//	        // offline
//	    }
//	    return err
//	}
//
// # Uploads
//
// A payload holding a File or Files field is sent as multipart/form-data:
//
//	_, err = fetch.Post[any](ctx, c, fetch.Request{
//	    URL: "/avatars",
//	    Data: fetch.Payload{
//	        "user":  fetch.Value(42),
//	        "image": fetch.File{FileName: "me.png", Data: png},
//	    },
//	})
package fetch
