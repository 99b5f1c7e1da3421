// Package google loads the credentials agenda uses to call Google Calendar.
//
// Three sources are supported: a service account key (optionally
// impersonating a user), an OAuth client with a token obtained out of band
// (token file or bare refresh token), and Application Default Credentials.
package google
