// Package integrationtests drives complete pipelines through the app layer:
// a diagram and binding files on disk, the core runners plus a test sleeper,
// and assertions on outputs, reports and logs.
package integrationtests
