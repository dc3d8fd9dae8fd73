package config

// DefaultIgnorePatterns lists the built-in ignore patterns applied when the
// default pattern source is enabled. Directory entries end with a slash; the
// "*.ext" entries are evaluated as extension quick rejects by the tree builder.
var DefaultIgnorePatterns = []string{
	".git/",
	".hg/",
	".svn/",
	".DS_Store",
	"node_modules/",
	"bower_components/",
	"jspm_packages/",
	"vendor/",
	".venv/",
	"venv/",
	"__pycache__/",
	".pytest_cache/",
	".mypy_cache/",
	".tox/",
	".idea/",
	".vscode/",
	".gradle/",
	".next/",
	".nuxt/",
	".cache/",
	"coverage/",
	"dist/",
	"build/",
	"target/",
	"out/",
	"tmp/",
	"temp/",
	"*.log",
	"*.tmp",
	"*.swp",
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"bun.lockb",
	"poetry.lock",
	"Pipfile.lock",
	"Cargo.lock",
	"composer.lock",
	"go.sum",
	"*.exe",
	"*.dll",
	"*.so",
	"*.dylib",
	"*.a",
	"*.o",
	"*.obj",
	"*.lib",
	"*.class",
	"*.jar",
	"*.war",
	"*.pyc",
	"*.pyo",
	"*.pyd",
	"*.wasm",
	"*.bin",
	"*.dat",
	"*.db",
	"*.sqlite",
	"*.png",
	"*.jpg",
	"*.jpeg",
	"*.gif",
	"*.bmp",
	"*.ico",
	"*.webp",
	"*.svgz",
	"*.pdf",
	"*.zip",
	"*.tar",
	"*.gz",
	"*.tgz",
	"*.bz2",
	"*.xz",
	"*.7z",
	"*.rar",
	"*.mp3",
	"*.mp4",
	"*.mov",
	"*.avi",
	"*.wav",
	"*.ttf",
	"*.otf",
	"*.woff",
	"*.woff2",
	"*.eot",
}
