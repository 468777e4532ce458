// Package constants This file contains all the constants that can be reused across the project
package constants

const (
	// FilePerm is used for files that only the installer user may read, like the staged passphrase.
	FilePerm = 0600
	// StateFilePerm is used when writing the pipeline state back to disk.
	StateFilePerm = 0600

	LoggerName = "zfs-keyfile"

	// PassphraseDir is where the passphrase is staged. The target root is not mounted yet
	// when this job runs, so the file lives on the live system.
	PassphraseDir  = "/tmp"
	PassphraseFile = PassphraseDir + "/.zfs_passphrase"
)

// Pipeline state keys.
const (
	StateKeyPoolInfo       = "zfsPoolInfo"
	StateKeyDatasets       = "zfsDatasets"
	StateKeyPassphraseFile = "zfs_passphrase_file"
)

// DialogTools lists the graphical dialog programs in priority order.
var DialogTools = []string{"kdialog", "zenity"}

// DefaultConfigFiles are the places a job configuration is looked up, later files win.
var DefaultConfigFiles = []string{
	"/usr/share/calamares/modules/zfs_keyfile_passphrase.conf",
	"/etc/calamares/modules/zfs_keyfile_passphrase.conf",
}

// Dialog texts.
const (
	InfoTitle = "ZFS Boot Configuration"
	InfoText  = "To enable automatic system boot with your encrypted ZFS pool, " +
		"we need to create a keyfile.\n\n" +
		"On the next screen, please re-enter your ZFS encryption passphrase.\n\n" +
		"(This is the same passphrase you entered during pool creation)"

	PassphraseTitle  = "ZFS Encryption Passphrase"
	PassphrasePrompt = "Enter your ZFS encryption passphrase for keyfile creation:"

	ConfirmTitle  = "Confirm Passphrase"
	ConfirmPrompt = "Please confirm your ZFS encryption passphrase:"
)

// Error pairs reported back to the installer.
const (
	PrettyName = "ZFS Keyfile Setup"

	TitleFailed    = "ZFS Keyfile Setup Failed"
	TitleCancelled = "ZFS Keyfile Setup Cancelled"
	TitleMismatch  = "Passphrase Mismatch"

	DescNoDialogTool = "No dialog tool available (need kdialog or zenity)"
	DescDeclined     = "Automatic boot setup was cancelled. " +
		"You will need to enter your passphrase manually at each boot."
	DescEmpty = "No passphrase provided. " +
		"You will need to enter your passphrase manually at each boot."
	DescMismatch     = "The passphrases do not match. Automatic boot setup was cancelled."
	DescWriteFailure = "Error writing passphrase to temporary file: %s"
)
